package httpserver

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
)

type categoryRequest struct {
	Slug            string `json:"slug" validate:"required,max=200"`
	FilterTerm      string `json:"filterTerm"`
	Name            string `json:"name" validate:"required"`
	Headline        string `json:"headline"`
	MetaDescription string `json:"meta_description"`
	Body            string `json:"body"`
}

type pageRequest struct {
	ID      string          `json:"_id" validate:"required,len=24,hexadecimal"`
	Key     string          `json:"key" validate:"required"`
	Path    string          `json:"path"`
	Title   string          `json:"title"`
	Content json.RawMessage `json:"content"`
}

type categoriesRequest struct {
	Categories []categoryRequest `json:"categories" validate:"dive"`
}

type pagesRequest struct {
	Pages []pageRequest `json:"pages" validate:"dive"`
}

type settingsRequest struct {
	SiteConfig domain.Settings `json:"siteConfig" validate:"required"`
}

func (s *Server) handleAdminListCategories(w http.ResponseWriter, r *http.Request) {
	s.handleListCategories(w, r)
}

func (s *Server) handleAdminReplaceCategories(w http.ResponseWriter, r *http.Request) {
	var req []categoryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(categoriesRequest{Categories: req}); err != nil {
		s.respondValidation(w, err)
		return
	}

	categories := make([]domain.Category, 0, len(req))
	for _, c := range req {
		categories = append(categories, domain.Category{
			Slug:            strings.TrimSpace(c.Slug),
			FilterTerm:      c.FilterTerm,
			Name:            c.Name,
			Headline:        c.Headline,
			MetaDescription: c.MetaDescription,
			Body:            c.Body,
		})
	}
	if err := s.repo.Categories.ReplaceAll(r.Context(), categories); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, codeConflict, "Category slugs must be unique")
			return
		}
		s.logger.Error().Err(err).Msg("replace categories")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to update categories")
		return
	}
	s.logger.Info().Int("count", len(categories)).Msg("categories replaced")
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Kategorierna har uppdaterats!"})
}

func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.repo.Pages.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list pages")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to list pages")
		return
	}
	s.respondJSON(w, http.StatusOK, pages)
}

func (s *Server) handleAdminListPages(w http.ResponseWriter, r *http.Request) {
	s.handleListPages(w, r)
}

func (s *Server) handleAdminUpdatePages(w http.ResponseWriter, r *http.Request) {
	var req []pageRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(pagesRequest{Pages: req}); err != nil {
		s.respondValidation(w, err)
		return
	}

	pages := make([]domain.Page, 0, len(req))
	for _, p := range req {
		pages = append(pages, domain.Page{
			ID:      strings.ToLower(p.ID),
			Key:     p.Key,
			Path:    p.Path,
			Title:   p.Title,
			Content: []byte(p.Content),
		})
	}
	modified, err := s.repo.Pages.BulkUpdate(r.Context(), pages)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, codeConflict, "Page keys must be unique")
			return
		}
		s.logger.Error().Err(err).Msg("update pages")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to update pages")
		return
	}
	s.logger.Info().Int64("modified", modified).Int("submitted", len(pages)).Msg("pages updated")
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Sidorna har uppdaterats!"})
}

func (s *Server) handleAdminGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.siteSettings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load settings")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to load settings")
		return
	}
	s.respondJSON(w, http.StatusOK, settings)
}

func (s *Server) handleAdminSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}
	if err := s.repo.Settings.Upsert(r.Context(), req.SiteConfig); err != nil {
		s.logger.Error().Err(err).Msg("save settings")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to save settings")
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Settings have been updated!"})
}

// siteSettings overlays the stored document on the configured defaults.
func (s *Server) siteSettings(ctx context.Context) (domain.Settings, error) {
	stored, err := s.repo.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	merged := domain.Settings{
		"title":        s.cfg.SiteTitle,
		"description":  s.cfg.SiteDescription,
		"siteUrl":      s.cfg.SiteURL,
		"author":       s.cfg.SiteAuthor,
		"postsPerPage": s.cfg.PostsPerPage,
	}
	for k, v := range stored {
		merged[k] = v
	}
	return merged, nil
}

// postsPerPage reads a positive page size from settings, falling back to
// the configured value.
func (s *Server) postsPerPage(settings domain.Settings) int {
	fallback := s.cfg.PostsPerPage
	if fallback < 1 {
		fallback = 9
	}
	var n float64
	switch v := settings["postsPerPage"].(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}
		n = float64(parsed)
	default:
		return fallback
	}
	if n < 1 || n > 100 || n != math.Trunc(n) {
		return fallback
	}
	return int(n)
}

func (s *Server) siteURL(settings domain.Settings) string {
	if v, ok := settings["siteUrl"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimRight(strings.TrimSpace(v), "/")
	}
	return s.cfg.SiteURLBase()
}
