package httpserver

import (
	"net/http"

	"github.com/Clark-Hu/bakatarta/internal/sitemap"
)

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := s.siteSettings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sitemap settings")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to build sitemap")
		return
	}
	refs, err := s.repo.Recipes.Refs(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sitemap recipes")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to build sitemap")
		return
	}
	categories, err := s.repo.Categories.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sitemap categories")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to build sitemap")
		return
	}
	pages, err := s.repo.Pages.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sitemap pages")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to build sitemap")
		return
	}

	body, err := sitemap.Build(s.siteURL(settings), s.now(), sitemap.Source{
		Recipes:    refs,
		Categories: categories,
		Pages:      pages,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("encode sitemap")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to build sitemap")
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
