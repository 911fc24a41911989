package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
)

type imageRequest struct {
	URL string `json:"url" validate:"required"`
	Alt string `json:"alt"`
}

type ingredientRequest struct {
	Amount  string `json:"amount"`
	Unit    string `json:"unit"`
	Product string `json:"product" validate:"required"`
}

type stepRequest struct {
	Step  string         `json:"step" validate:"required"`
	Image []imageRequest `json:"image" validate:"omitempty,dive"`
}

type recipeRequest struct {
	Slug           string              `json:"slug" validate:"omitempty,max=200"`
	Name           string              `json:"name" validate:"required,max=300"`
	Description    string              `json:"description"`
	Keywords       string              `json:"keywords"`
	Servings       string              `json:"servings"`
	PrepTime       string              `json:"prepTime"`
	CookingTime    string              `json:"cookingTime"`
	TotalTime      string              `json:"totalTime"`
	RecipeCategory string              `json:"recipeCategory"`
	RecipeCuisine  string              `json:"recipeCuisine"`
	DatePublished  string              `json:"datePublished" validate:"omitempty,max=40"`
	Image          []imageRequest      `json:"image" validate:"omitempty,dive"`
	Ingredients    []ingredientRequest `json:"ingredients" validate:"omitempty,dive"`
	Steps          []stepRequest       `json:"steps" validate:"omitempty,dive"`
	Nutrition      *domain.Nutrition   `json:"nutrition"`
}

type createRecipeResponse struct {
	Message    string `json:"message"`
	InsertedID string `json:"insertedId"`
}

type adminRecipeListResponse struct {
	Items      []domain.Recipe `json:"items"`
	NextCursor *string         `json:"nextCursor"`
}

func (req recipeRequest) toRecipe() domain.Recipe {
	recipe := domain.Recipe{
		Slug:           strings.TrimSpace(req.Slug),
		Name:           strings.TrimSpace(req.Name),
		Description:    req.Description,
		Keywords:       req.Keywords,
		Servings:       req.Servings,
		PrepTime:       req.PrepTime,
		CookingTime:    req.CookingTime,
		TotalTime:      req.TotalTime,
		RecipeCategory: req.RecipeCategory,
		RecipeCuisine:  req.RecipeCuisine,
		DatePublished:  req.DatePublished,
		Image:          toImages(req.Image),
		Ingredients:    make([]domain.Ingredient, 0, len(req.Ingredients)),
		Nutrition:      req.Nutrition,
	}
	for _, ing := range req.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, domain.Ingredient(ing))
	}
	for _, st := range req.Steps {
		recipe.Steps = append(recipe.Steps, domain.Step{Step: st.Step, Image: toImages(st.Image)})
	}
	return recipe
}

func toImages(in []imageRequest) []domain.Image {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Image, 0, len(in))
	for _, img := range in {
		out = append(out, domain.Image(img))
	}
	return out
}

func (s *Server) handleAdminListRecipes(w http.ResponseWriter, r *http.Request) {
	filters, err := buildRecipeListFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	result, err := s.repo.Recipes.List(r.Context(), filters)
	if err != nil {
		s.logger.Error().Err(err).Msg("admin list recipes")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to list recipes")
		return
	}
	s.respondJSON(w, http.StatusOK, adminRecipeListResponse{Items: result.Items, NextCursor: result.NextCursor})
}

func buildRecipeListFilters(query url.Values) (repository.RecipeListFilters, error) {
	var filters repository.RecipeListFilters

	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleAdminCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var req recipeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}

	created, err := s.repo.Recipes.Create(r.Context(), req.toRecipe())
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			s.respondError(w, http.StatusConflict, codeConflict, "A recipe with this slug already exists")
			return
		}
		s.logger.Error().Err(err).Msg("create recipe")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to create recipe")
		return
	}

	s.logger.Info().Str("recipe_id", created.ID).Str("slug", created.Slug).Msg("recipe created")
	w.Header().Set("Location", "/api/recipes/"+url.PathEscape(created.Slug))
	s.respondJSON(w, http.StatusCreated, createRecipeResponse{
		Message:    "Receptet har lagts till!",
		InsertedID: created.ID,
	})
}

func (s *Server) handleAdminUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !domain.IsRecipeID(id) {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "Invalid recipe id")
		return
	}

	var req recipeRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondValidation(w, err)
		return
	}

	if _, err := s.repo.Recipes.Update(r.Context(), id, req.toRecipe()); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			s.respondError(w, http.StatusNotFound, codeNotFound, "Receptet hittades inte.")
		case errors.Is(err, repository.ErrConflict):
			s.respondError(w, http.StatusConflict, codeConflict, "A recipe with this slug already exists")
		default:
			s.logger.Error().Err(err).Str("recipe_id", id).Msg("update recipe")
			s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to update recipe")
		}
		return
	}
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Receptet har uppdaterats!"})
}

func (s *Server) handleAdminDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !domain.IsRecipeID(id) {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, "Invalid recipe id")
		return
	}
	if err := s.repo.Recipes.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, codeNotFound, "Receptet hittades inte.")
			return
		}
		s.logger.Error().Err(err).Str("recipe_id", id).Msg("delete recipe")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to delete recipe")
		return
	}
	s.logger.Info().Str("recipe_id", id).Msg("recipe deleted")
	s.respondJSON(w, http.StatusOK, messageResponse{Message: "Receptet har raderats!"})
}
