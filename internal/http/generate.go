package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/Clark-Hu/bakatarta/internal/ollama"
)

const msgGenerateFailed = "Misslyckades med att generera recept från din AI-server."

type generateRequest struct {
	Messages []ollama.Message `json:"messages" validate:"required,min=1,dive"`
}

func (s *Server) handleAdminGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	if s.generator == nil {
		s.respondError(w, http.StatusServiceUnavailable, codeUnavailable, "Recipe generation is not configured")
		return
	}

	var req generateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}

	draft, err := s.generator.Generate(r.Context(), req.Messages)
	if err != nil {
		var statusErr *ollama.StatusError
		switch {
		case errors.Is(err, ollama.ErrUnavailable):
			s.respondError(w, http.StatusServiceUnavailable, codeUnavailable, msgGenerateFailed)
		case errors.Is(err, context.Canceled):
			s.logger.Debug().Msg("client went away during generation")
		case errors.As(err, &statusErr), errors.Is(err, ollama.ErrBadResponse), errors.Is(err, context.DeadlineExceeded):
			s.respondError(w, http.StatusBadGateway, codeUnavailable, msgGenerateFailed)
		default:
			s.respondError(w, http.StatusInternalServerError, codeInternal, msgGenerateFailed)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(draft); err != nil {
		s.logger.Warn().Err(err).Msg("write generated recipe")
	}
}
