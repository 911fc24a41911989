package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/bakatarta/internal/domain"
)

// ReviewsRepository stores visitor reviews and keeps recipe aggregates in
// step with them.
type ReviewsRepository struct {
	pool *pgxpool.Pool
}

// AggregateFunc derives the next aggregate from the one currently stored.
type AggregateFunc func(current domain.AggregateRating) domain.AggregateRating

// SubmitReview locks the recipe row, replaces its aggregate with
// next(current) and inserts review, all in one transaction. Concurrent
// submissions for the same recipe serialize on the row lock, so no vote is
// lost.
func (r *ReviewsRepository) SubmitReview(ctx context.Context, review domain.Review, next AggregateFunc) (domain.AggregateRating, error) {
	var updated domain.AggregateRating

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var current domain.AggregateRating
		err := tx.QueryRow(ctx, `
            SELECT rating_value::float8, rating_count
            FROM recipes
            WHERE id = $1
            FOR UPDATE
        `, review.RecipeID).Scan(&current.RatingValue, &current.RatingCount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		updated = next(current)

		tag, err := tx.Exec(ctx, `
            UPDATE recipes
            SET rating_value = $2, rating_count = $3
            WHERE id = $1
        `, review.RecipeID, updated.RatingValue, updated.RatingCount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotModified
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO reviews (recipe_id, rating, comment, approved, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, review.RecipeID, review.Rating, review.Comment, review.Approved, review.CreatedAt)
		return err
	})
	if err != nil {
		return domain.AggregateRating{}, err
	}
	return updated, nil
}

// ListByRecipe returns approved reviews for a recipe, newest first.
func (r *ReviewsRepository) ListByRecipe(ctx context.Context, recipeID string, limit int) ([]domain.Review, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
        SELECT id, recipe_id, rating, comment, approved, created_at
        FROM reviews
        WHERE recipe_id = $1 AND approved
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `, recipeID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Review, error) {
		var (
			rv    domain.Review
			stars int16
		)
		err := row.Scan(&rv.ID, &rv.RecipeID, &stars, &rv.Comment, &rv.Approved, &rv.CreatedAt)
		rv.Rating = int(stars)
		return rv, err
	})
}
