package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bakatarta/internal/domain"
)

// PagesRepository persists informational pages.
type PagesRepository struct {
	pool *pgxpool.Pool
}

// List returns all pages ordered by key.
func (r *PagesRepository) List(ctx context.Context) ([]domain.Page, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, key, path, title, content FROM pages ORDER BY key`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Page, error) {
		var (
			p       domain.Page
			content []byte
		)
		if err := row.Scan(&p.ID, &p.Key, &p.Path, &p.Title, &content); err != nil {
			return domain.Page{}, err
		}
		if len(content) > 0 {
			p.Content = content
		}
		return p, nil
	})
}

// BulkUpdate writes every page by id in one transaction. Pages whose id is
// unknown are skipped; the number of rows changed is returned.
func (r *PagesRepository) BulkUpdate(ctx context.Context, pages []domain.Page) (int64, error) {
	var modified int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range pages {
			batch.Queue(`
                UPDATE pages SET key = $2, path = $3, title = $4, content = $5
                WHERE id = $1
            `, p.ID, p.Key, p.Path, p.Title, rawOrNil(p.Content))
		}
		results := tx.SendBatch(ctx, batch)
		for range pages {
			tag, err := results.Exec()
			if err != nil {
				results.Close()
				return err
			}
			modified += tag.RowsAffected()
		}
		return results.Close()
	})
	if isUniqueViolation(err) {
		return 0, ErrConflict
	}
	return modified, err
}

// ReplaceAll swaps the stored pages for pages. Missing ids are generated.
func (r *PagesRepository) ReplaceAll(ctx context.Context, pages []domain.Page) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM pages`); err != nil {
			return err
		}
		for _, p := range pages {
			if !domain.IsRecipeID(p.ID) {
				p.ID = domain.NewRecipeID()
			}
			_, err := tx.Exec(ctx, `
                INSERT INTO pages (id, key, path, title, content)
                VALUES ($1, $2, $3, $4, $5)
            `, p.ID, p.Key, p.Path, p.Title, rawOrNil(p.Content))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if isUniqueViolation(err) {
		return ErrConflict
	}
	return err
}

func rawOrNil(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
