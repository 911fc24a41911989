package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/bakatarta/internal/media"
	"github.com/Clark-Hu/bakatarta/internal/metrics"
)

type uploadResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "fileName")
	f, contentType, err := s.media.Open(name)
	if err != nil {
		if !errors.Is(err, media.ErrNotFound) && !errors.Is(err, media.ErrInvalidName) {
			s.logger.Error().Err(err).Str("file", name).Msg("open image")
		}
		s.respondJSON(w, http.StatusNotFound, messageResponse{Message: "Image not found."})
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.respondJSON(w, http.StatusNotFound, messageResponse{Message: "Image not found."})
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleAdminUpload streams the multipart part named "file" to the media
// store without buffering the whole form.
func (s *Server) handleAdminUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+maxRequestBody)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		metrics.RecordUpload("rejected", 0)
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "No file uploaded.")
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var maxBytes *http.MaxBytesError
			if errors.As(err, &maxBytes) {
				metrics.RecordUpload("too_large", 0)
				s.respondError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "File too large.")
				return
			}
			metrics.RecordUpload("rejected", 0)
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "No file uploaded.")
			return
		}
		if part.FormName() != "file" || part.FileName() == "" {
			part.Close()
			continue
		}

		saved, err := s.media.Save(part.FileName(), part)
		part.Close()
		if err != nil {
			var maxBytes *http.MaxBytesError
			switch {
			case errors.Is(err, media.ErrTooLarge), errors.As(err, &maxBytes):
				metrics.RecordUpload("too_large", 0)
				s.respondError(w, http.StatusRequestEntityTooLarge, codeBadRequest, "File too large.")
			case errors.Is(err, media.ErrInvalidName):
				metrics.RecordUpload("rejected", 0)
				s.respondError(w, http.StatusBadRequest, codeBadRequest, "Invalid file name.")
			default:
				metrics.RecordUpload("failure", 0)
				s.logger.Error().Err(err).Msg("save upload")
				s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to store file.")
			}
			return
		}

		metrics.RecordUpload("success", saved.Size)
		s.logger.Info().Str("file", saved.Name).Int64("bytes", saved.Size).Msg("image uploaded")
		s.respondJSON(w, http.StatusOK, uploadResponse{URL: saved.URL})
		return
	}

	metrics.RecordUpload("rejected", 0)
	s.respondError(w, http.StatusBadRequest, codeBadRequest, "No file uploaded.")
}
