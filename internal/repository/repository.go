package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bakatarta/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrNotModified indicates a write matched no row although the row was
	// seen moments before.
	ErrNotModified = errors.New("repository: no rows modified")
	// ErrConflict indicates a unique constraint violation, e.g. a taken slug.
	ErrConflict = errors.New("repository: conflict")
)

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Recipes    *RecipesRepository
	Reviews    *ReviewsRepository
	Categories *CategoriesRepository
	Pages      *PagesRepository
	Settings   *SettingsRepository
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{
		Recipes:    &RecipesRepository{pool: pool},
		Reviews:    &ReviewsRepository{pool: pool},
		Categories: &CategoriesRepository{pool: pool},
		Pages:      &PagesRepository{pool: pool},
		Settings:   &SettingsRepository{pool: pool},
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching term anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}
