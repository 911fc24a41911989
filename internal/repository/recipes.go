package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bakatarta/internal/domain"
)

// RecipesRepository provides persistence helpers for recipe documents.
type RecipesRepository struct {
	pool *pgxpool.Pool
}

const recipeColumns = `
    id,
    slug,
    slug_history,
    name,
    description,
    keywords,
    servings,
    prep_time,
    cooking_time,
    total_time,
    recipe_category,
    recipe_cuisine,
    date_published,
    images,
    ingredients,
    steps,
    nutrition,
    rating_value::float8,
    rating_count,
    created_at,
    updated_at
`

const publishedOrder = ` ORDER BY date_published DESC, created_at DESC, id DESC`

// RecipePageFilters selects one numbered page of the public listing. An
// empty Term lists every recipe.
type RecipePageFilters struct {
	Term    string
	Offset  int
	PerPage int
}

// RecipePage is one numbered page plus the total match count.
type RecipePage struct {
	Items      []domain.Recipe
	TotalCount int
}

// RecipeListFilters drives the admin cursor listing.
type RecipeListFilters struct {
	Limit  int
	Cursor *RecipeCursor
}

// RecipeCursor allows stable pagination by created_at/id.
type RecipeCursor struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

// RecipeListResult returns the cursor-paginated payload.
type RecipeListResult struct {
	Items      []domain.Recipe
	NextCursor *string
}

// RecipeRef is the slim projection used for sitemap generation.
type RecipeRef struct {
	Slug          string
	DatePublished string
}

// Create inserts a recipe. A missing ID, slug or aggregate is filled in; the
// stored entity is returned.
func (r *RecipesRepository) Create(ctx context.Context, recipe domain.Recipe) (domain.Recipe, error) {
	prepareNew(&recipe)
	return r.insert(ctx, r.pool, recipe)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *RecipesRepository) insert(ctx context.Context, q queryRower, recipe domain.Recipe) (domain.Recipe, error) {
	docs, err := marshalRecipeDocs(recipe)
	if err != nil {
		return domain.Recipe{}, err
	}

	query := fmt.Sprintf(`
        INSERT INTO recipes (
            id, slug, slug_history, name, description, keywords, servings,
            prep_time, cooking_time, total_time, recipe_category, recipe_cuisine,
            date_published, images, ingredients, steps, nutrition,
            rating_value, rating_count
        )
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
        RETURNING %s
    `, recipeColumns)

	row := q.QueryRow(ctx, query,
		recipe.ID, recipe.Slug, nonNilStrings(recipe.SlugHistory), recipe.Name, recipe.Description,
		recipe.Keywords, recipe.Servings, recipe.PrepTime, recipe.CookingTime, recipe.TotalTime,
		recipe.RecipeCategory, recipe.RecipeCuisine, recipe.DatePublished,
		docs.images, docs.ingredients, docs.steps, docs.nutrition,
		recipe.AggregateRating.RatingValue, recipe.AggregateRating.RatingCount,
	)
	stored, err := scanRecipe(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Recipe{}, ErrConflict
		}
		return domain.Recipe{}, err
	}
	return stored, nil
}

// GetByID fetches a recipe by its identifier.
func (r *RecipesRepository) GetByID(ctx context.Context, id string) (domain.Recipe, error) {
	query := fmt.Sprintf(`SELECT %s FROM recipes WHERE id = $1`, recipeColumns)
	return r.getOne(ctx, query, id)
}

// GetBySlug resolves a current slug first and falls back to slug history so
// renamed recipes stay reachable.
func (r *RecipesRepository) GetBySlug(ctx context.Context, slug string) (domain.Recipe, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM recipes
        WHERE slug = $1 OR $1 = ANY(slug_history)
        ORDER BY (slug = $1) DESC, updated_at DESC
        LIMIT 1
    `, recipeColumns)
	return r.getOne(ctx, query, slug)
}

func (r *RecipesRepository) getOne(ctx context.Context, query string, arg string) (domain.Recipe, error) {
	recipe, err := scanRecipe(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Recipe{}, ErrNotFound
		}
		return domain.Recipe{}, err
	}
	return recipe, nil
}

// Update replaces the editable fields of a recipe. When the slug changes the
// previous one is appended to slug_history. The aggregate rating is owned by
// review submission and never touched here.
func (r *RecipesRepository) Update(ctx context.Context, id string, recipe domain.Recipe) (domain.Recipe, error) {
	if strings.TrimSpace(recipe.Slug) == "" {
		recipe.Slug = domain.Slugify(recipe.Name)
	}
	docs, err := marshalRecipeDocs(recipe)
	if err != nil {
		return domain.Recipe{}, err
	}

	query := fmt.Sprintf(`
        UPDATE recipes
        SET slug_history = CASE
                WHEN slug <> $2 THEN array_append(array_remove(slug_history, $2), slug)
                ELSE slug_history
            END,
            slug = $2,
            name = $3,
            description = $4,
            keywords = $5,
            servings = $6,
            prep_time = $7,
            cooking_time = $8,
            total_time = $9,
            recipe_category = $10,
            recipe_cuisine = $11,
            date_published = $12,
            images = $13,
            ingredients = $14,
            steps = $15,
            nutrition = $16,
            updated_at = now()
        WHERE id = $1
        RETURNING %s
    `, recipeColumns)

	row := r.pool.QueryRow(ctx, query,
		id, recipe.Slug, recipe.Name, recipe.Description, recipe.Keywords, recipe.Servings,
		recipe.PrepTime, recipe.CookingTime, recipe.TotalTime, recipe.RecipeCategory,
		recipe.RecipeCuisine, recipe.DatePublished,
		docs.images, docs.ingredients, docs.steps, docs.nutrition,
	)
	stored, err := scanRecipe(row)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Recipe{}, ErrNotFound
		case isUniqueViolation(err):
			return domain.Recipe{}, ErrConflict
		}
		return domain.Recipe{}, err
	}
	return stored, nil
}

// Delete removes a recipe and, by cascade, its reviews.
func (r *RecipesRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPage returns one numbered page, newest publication first. A non-empty
// Term keeps recipes whose name, keywords, category or description contain
// it, case-insensitively.
func (r *RecipesRepository) ListPage(ctx context.Context, filters RecipePageFilters) (RecipePage, error) {
	if filters.PerPage <= 0 {
		filters.PerPage = 9
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	where := ""
	args := make([]any, 0, 3)
	if strings.TrimSpace(filters.Term) != "" {
		args = append(args, containsPattern(filters.Term))
		where = ` WHERE (name ILIKE $1 OR keywords ILIKE $1 OR recipe_category ILIKE $1 OR description ILIKE $1)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM recipes`+where, args...).Scan(&total); err != nil {
		return RecipePage{}, err
	}

	query := fmt.Sprintf(`SELECT %s FROM recipes%s%s LIMIT $%d OFFSET $%d`,
		recipeColumns, where, publishedOrder, len(args)+1, len(args)+2)
	args = append(args, filters.PerPage, filters.Offset)

	items, err := r.queryRecipes(ctx, query, args...)
	if err != nil {
		return RecipePage{}, err
	}
	return RecipePage{Items: items, TotalCount: total}, nil
}

// Search matches q against name, description and keywords.
func (r *RecipesRepository) Search(ctx context.Context, q string, limit int) ([]domain.Recipe, error) {
	if strings.TrimSpace(q) == "" {
		return []domain.Recipe{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := fmt.Sprintf(`
        SELECT %s FROM recipes
        WHERE name ILIKE $1 OR description ILIKE $1 OR keywords ILIKE $1
        %s
        LIMIT $2
    `, recipeColumns, publishedOrder)
	return r.queryRecipes(ctx, query, containsPattern(q), limit)
}

// List returns recipes newest-created first using cursor pagination.
func (r *RecipesRepository) List(ctx context.Context, filters RecipeListFilters) (RecipeListResult, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	} else if filters.Limit > 100 {
		filters.Limit = 100
	}

	queryBuilder := strings.Builder{}
	queryBuilder.WriteString("SELECT ")
	queryBuilder.WriteString(recipeColumns)
	queryBuilder.WriteString(" FROM recipes")

	args := make([]any, 0, 2)
	if filters.Cursor != nil {
		args = append(args, filters.Cursor.CreatedAt, filters.Cursor.ID)
		queryBuilder.WriteString(" WHERE (created_at, id) < ($1, $2)")
	}
	queryBuilder.WriteString(" ORDER BY created_at DESC, id DESC")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT %d", filters.Limit))

	items, err := r.queryRecipes(ctx, queryBuilder.String(), args...)
	if err != nil {
		return RecipeListResult{}, err
	}

	var nextCursor *string
	if len(items) == filters.Limit {
		last := items[len(items)-1]
		token, err := encodeCursor(RecipeCursor{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return RecipeListResult{}, err
		}
		nextCursor = &token
	}
	return RecipeListResult{Items: items, NextCursor: nextCursor}, nil
}

// Refs lists slug and publication date of every recipe.
func (r *RecipesRepository) Refs(ctx context.Context) ([]RecipeRef, error) {
	rows, err := r.pool.Query(ctx, `SELECT slug, date_published FROM recipes`+publishedOrder)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RecipeRef, error) {
		var ref RecipeRef
		err := row.Scan(&ref.Slug, &ref.DatePublished)
		return ref, err
	})
}

// ReplaceAll swaps the whole collection for recipes in one transaction. Used
// by the data import; existing reviews go with their recipes.
func (r *RecipesRepository) ReplaceAll(ctx context.Context, recipes []domain.Recipe) (int, error) {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recipes`); err != nil {
			return err
		}
		for i := range recipes {
			rec := recipes[i]
			if !domain.IsRecipeID(rec.ID) {
				rec.ID = ""
			}
			prepareNew(&rec)
			if _, err := r.insert(ctx, tx, rec); err != nil {
				return fmt.Errorf("recipe %q: %w", rec.Slug, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(recipes), nil
}

func (r *RecipesRepository) queryRecipes(ctx context.Context, query string, args ...any) ([]domain.Recipe, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Recipe, 0)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// prepareNew fills the fields a freshly authored recipe may omit.
func prepareNew(recipe *domain.Recipe) {
	if recipe.ID == "" {
		recipe.ID = domain.NewRecipeID()
	}
	if strings.TrimSpace(recipe.Slug) == "" {
		recipe.Slug = domain.Slugify(recipe.Name)
	}
	if recipe.AggregateRating.RatingCount <= 0 {
		recipe.AggregateRating = domain.DefaultAggregateRating()
	}
}

type recipeDocs struct {
	images      []byte
	ingredients []byte
	steps       []byte
	nutrition   []byte
}

func marshalRecipeDocs(recipe domain.Recipe) (recipeDocs, error) {
	var (
		docs recipeDocs
		err  error
	)
	if docs.images, err = marshalList(recipe.Image); err != nil {
		return docs, fmt.Errorf("marshal images: %w", err)
	}
	if docs.ingredients, err = marshalList(recipe.Ingredients); err != nil {
		return docs, fmt.Errorf("marshal ingredients: %w", err)
	}
	if docs.steps, err = marshalList(recipe.Steps); err != nil {
		return docs, fmt.Errorf("marshal steps: %w", err)
	}
	if recipe.Nutrition != nil {
		if docs.nutrition, err = json.Marshal(recipe.Nutrition); err != nil {
			return docs, fmt.Errorf("marshal nutrition: %w", err)
		}
	}
	return docs, nil
}

func marshalList[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanRecipe(row pgx.Row) (domain.Recipe, error) {
	var (
		recipe          domain.Recipe
		imagesJSON      []byte
		ingredientsJSON []byte
		stepsJSON       []byte
		nutritionJSON   []byte
	)

	err := row.Scan(
		&recipe.ID,
		&recipe.Slug,
		&recipe.SlugHistory,
		&recipe.Name,
		&recipe.Description,
		&recipe.Keywords,
		&recipe.Servings,
		&recipe.PrepTime,
		&recipe.CookingTime,
		&recipe.TotalTime,
		&recipe.RecipeCategory,
		&recipe.RecipeCuisine,
		&recipe.DatePublished,
		&imagesJSON,
		&ingredientsJSON,
		&stepsJSON,
		&nutritionJSON,
		&recipe.AggregateRating.RatingValue,
		&recipe.AggregateRating.RatingCount,
		&recipe.CreatedAt,
		&recipe.UpdatedAt,
	)
	if err != nil {
		return domain.Recipe{}, err
	}

	if err := json.Unmarshal(imagesJSON, &recipe.Image); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode images: %w", err)
	}
	if err := json.Unmarshal(ingredientsJSON, &recipe.Ingredients); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode ingredients: %w", err)
	}
	if err := json.Unmarshal(stepsJSON, &recipe.Steps); err != nil {
		return domain.Recipe{}, fmt.Errorf("decode steps: %w", err)
	}
	if len(nutritionJSON) > 0 {
		var n domain.Nutrition
		if err := json.Unmarshal(nutritionJSON, &n); err != nil {
			return domain.Recipe{}, fmt.Errorf("decode nutrition: %w", err)
		}
		recipe.Nutrition = &n
	}
	return recipe, nil
}

func encodeCursor(c RecipeCursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecodeCursor parses a cursor token into a RecipeCursor.
func DecodeCursor(token string) (*RecipeCursor, error) {
	if token == "" {
		return nil, nil
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var cursor RecipeCursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if cursor.ID == "" || cursor.CreatedAt.IsZero() {
		return nil, fmt.Errorf("invalid cursor payload")
	}
	return &cursor, nil
}
