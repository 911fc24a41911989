package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/bakatarta/internal/auth"
)

type loginRequest struct {
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid password")
		return
	}
	if err := s.passwords.Check(req.Password); err != nil {
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("failed admin login")
		s.respondError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid password")
		return
	}

	token, err := s.sessions.Issue(auth.AdminSubject)
	if err != nil {
		s.logger.Error().Err(err).Msg("issue session")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to create session")
		return
	}
	s.respondJSON(w, http.StatusOK, token)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		s.respondError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or invalid authentication information")
		return
	}
	if err := s.sessions.Revoke(token); err != nil {
		s.respondError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or invalid authentication information")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
