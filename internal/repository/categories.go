package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bakatarta/internal/domain"
)

// CategoriesRepository persists the category set.
type CategoriesRepository struct {
	pool *pgxpool.Pool
}

const categoryColumns = `slug, filter_term, name, headline, meta_description, body`

// List returns all categories sorted by name.
func (r *CategoriesRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name, slug`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanCategory)
}

// GetBySlug fetches one category.
func (r *CategoriesRepository) GetBySlug(ctx context.Context, slug string) (domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories WHERE slug = $1`, slug)
	if err != nil {
		return domain.Category{}, err
	}
	category, err := pgx.CollectOneRow(rows, scanCategory)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Category{}, ErrNotFound
	}
	return category, err
}

// ReplaceAll swaps the stored set for categories atomically. Duplicate
// slugs in the input are reported as ErrConflict.
func (r *CategoriesRepository) ReplaceAll(ctx context.Context, categories []domain.Category) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM categories`); err != nil {
			return err
		}
		if len(categories) == 0 {
			return nil
		}
		rows := make([][]any, 0, len(categories))
		for _, c := range categories {
			rows = append(rows, []any{c.Slug, c.FilterTerm, c.Name, c.Headline, c.MetaDescription, c.Body})
		}
		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"categories"},
			[]string{"slug", "filter_term", "name", "headline", "meta_description", "body"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func scanCategory(row pgx.CollectableRow) (domain.Category, error) {
	var c domain.Category
	err := row.Scan(&c.Slug, &c.FilterTerm, &c.Name, &c.Headline, &c.MetaDescription, &c.Body)
	return c, err
}
