package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/pagination"
	"github.com/Clark-Hu/bakatarta/internal/repository"
	"github.com/Clark-Hu/bakatarta/internal/scaling"
)

type listingResponse struct {
	Items       []domain.Recipe `json:"items"`
	TotalCount  int64           `json:"totalCount"`
	Count       int             `json:"count"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Prev        *string         `json:"prev"`
	Next        *string         `json:"next"`
}

type categoryListingResponse struct {
	Category domain.Category `json:"category"`
	listingResponse
}

type servingsResponse struct {
	Base    int `json:"base"`
	Current int `json:"current"`
}

type recipeDetailResponse struct {
	Recipe      domain.Recipe       `json:"recipe"`
	Servings    servingsResponse    `json:"servings"`
	Ingredients []domain.Ingredient `json:"ingredients"`
}

type reviewsResponse struct {
	Items []domain.Review `json:"items"`
}

type searchResponse struct {
	Query string          `json:"query"`
	Items []domain.Recipe `json:"items"`
	Count int             `json:"count"`
}

func newListing(items []domain.Recipe, pg pagination.Page, link func(int) string) listingResponse {
	resp := listingResponse{
		Items:       items,
		TotalCount:  pg.TotalCount,
		Count:       len(items),
		TotalPages:  pg.TotalPages(),
		CurrentPage: pg.Number,
	}
	prev, next := pg.Links(link)
	if prev != "" {
		resp.Prev = &prev
	}
	if next != "" {
		resp.Next = &next
	}
	return resp
}

// listPage loads page number of the listing filtered by term. It returns
// ok=false after responding when the page is past the end.
func (s *Server) listPage(w http.ResponseWriter, r *http.Request, term string, link func(int) string) (listingResponse, bool) {
	settings, err := s.siteSettings(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("load settings")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to load settings")
		return listingResponse{}, false
	}
	perPage := s.postsPerPage(settings)
	number := pagination.ParseNumber(r.URL.Query().Get("page"))
	offset := pagination.New(number, perPage, 0).Offset()

	result, err := s.repo.Recipes.ListPage(r.Context(), repository.RecipePageFilters{
		Term:    term,
		Offset:  offset,
		PerPage: perPage,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("list recipes")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to list recipes")
		return listingResponse{}, false
	}

	pg := pagination.New(number, perPage, int64(result.TotalCount))
	if pg.OutOfRange() {
		s.respondError(w, http.StatusNotFound, codeNotFound, "Page not found")
		return listingResponse{}, false
	}
	return newListing(result.Items, pg, link), true
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	resp, ok := s.listPage(w, r, "", pagination.RecipePageLink)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	recipe, err := s.repo.Recipes.GetBySlug(r.Context(), slug)
	if err != nil {
		s.respondLookupError(w, err, "recipe")
		return
	}
	if recipe.Slug != slug {
		target := "/api/recipes/" + url.PathEscape(recipe.Slug)
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}
		http.Redirect(w, r, target, http.StatusMovedPermanently)
		return
	}

	state := scaling.NewServingState(recipe.Servings)
	if n, ok := parseServings(r.URL.Query().Get("servings")); ok {
		state.Set(n)
	}

	s.respondJSON(w, http.StatusOK, recipeDetailResponse{
		Recipe:      recipe,
		Servings:    servingsResponse{Base: state.Base, Current: state.Current},
		Ingredients: state.Apply(recipe.Ingredients),
	})
}

// parseServings accepts a positive integer; anything else means "unscaled".
func parseServings(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 1000 {
		return 0, false
	}
	return n, true
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	recipe, err := s.repo.Recipes.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondLookupError(w, err, "recipe")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	reviews, err := s.repo.Reviews.ListByRecipe(r.Context(), recipe.ID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("recipe_id", recipe.ID).Msg("list reviews")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to list reviews")
		return
	}
	s.respondJSON(w, http.StatusOK, reviewsResponse{Items: reviews})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.repo.Recipes.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("search recipes")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, searchResponse{Query: q, Items: items, Count: len(items)})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.repo.Categories.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list categories")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to list categories")
		return
	}
	s.respondJSON(w, http.StatusOK, categories)
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := s.repo.Categories.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.respondLookupError(w, err, "category")
		return
	}
	term := category.FilterTerm
	if strings.TrimSpace(term) == "" {
		term = category.Name
	}
	listing, ok := s.listPage(w, r, term, func(n int) string {
		return pagination.CategoryPageLink(category.Slug, n)
	})
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, categoryListingResponse{Category: category, listingResponse: listing})
}

func (s *Server) respondLookupError(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, codeNotFound, "Resource not found")
		return
	}
	s.logger.Error().Err(err).Str("entity", what).Msg("lookup failed")
	s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to load "+what)
}
