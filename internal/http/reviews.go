package httpserver

import (
	"bytes"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/bakatarta/internal/metrics"
	"github.com/Clark-Hu/bakatarta/internal/rating"
)

// looseNumber accepts a JSON number or a numeric string. Anything else
// decodes to NaN so the rating rules reject it.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*n = 0
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			f = math.NaN()
		}
		*n = finite(f)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			*n = looseNumber(math.NaN())
			return nil
		}
		*n = finite(f)
	}
	return nil
}

func finite(f float64) looseNumber {
	if math.IsInf(f, 0) {
		return looseNumber(math.NaN())
	}
	return looseNumber(f)
}

type submitReviewRequest struct {
	RecipeID string      `json:"recipeId"`
	Rating   looseNumber `json:"rating"`
	Comment  string      `json:"comment"`
}

type submitReviewResponse struct {
	Message        string  `json:"message"`
	NewRatingValue float64 `json:"newRatingValue"`
	NewRatingCount int64   `json:"newRatingCount"`
}

func (s *Server) handleSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req submitReviewRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		metrics.RecordReview(rating.KindValidation.String())
		s.respondDecodeError(w, err)
		return
	}

	res, err := s.reviews.Submit(r.Context(), rating.Submission{
		RecipeID: req.RecipeID,
		Rating:   float64(req.Rating),
		Comment:  req.Comment,
	})
	if err != nil {
		kind := rating.KindOf(err)
		metrics.RecordReview(kind.String())
		status, code := reviewErrorStatus(kind)
		message := "Ett serverfel uppstod."
		var rerr *rating.Error
		if errors.As(err, &rerr) {
			message = rerr.Message
		}
		s.respondError(w, status, code, message)
		return
	}

	metrics.RecordReview("accepted")
	s.respondJSON(w, http.StatusOK, submitReviewResponse{
		Message:        res.Message,
		NewRatingValue: res.NewRatingValue,
		NewRatingCount: res.NewRatingCount,
	})
}

func reviewErrorStatus(kind rating.Kind) (int, string) {
	switch kind {
	case rating.KindValidation:
		return http.StatusUnprocessableEntity, codeValidation
	case rating.KindNotFound:
		return http.StatusNotFound, codeNotFound
	case rating.KindWriteConflict:
		return http.StatusConflict, codeConflict
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
