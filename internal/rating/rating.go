// Package rating accepts star reviews for recipes and keeps each recipe's
// aggregate rating current.
package rating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Submission is a visitor's review as received.
type Submission struct {
	RecipeID string
	Rating   float64
	Comment  string
}

// Result is returned so the caller can show the new aggregate without a reload.
type Result struct {
	Message        string
	NewRatingValue float64
	NewRatingCount int64
}

// Store persists a review together with the recomputed aggregate. next is
// applied to the aggregate read under the store's row lock.
type Store interface {
	SubmitReview(ctx context.Context, review domain.Review, next repository.AggregateFunc) (domain.AggregateRating, error)
}

// Service validates submissions and records them.
type Service struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewService constructs a Service over store.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "rating").Logger(),
		now:    time.Now,
	}
}

// Submit validates sub, updates the recipe aggregate and inserts the review.
// Every failure is returned as *Error; nothing is retried.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	stars, comment, err := Validate(sub)
	if err != nil {
		return Result{}, err
	}

	review := domain.Review{
		RecipeID:  sub.RecipeID,
		Rating:    stars,
		Comment:   comment,
		CreatedAt: s.now().UTC(),
		Approved:  true,
	}

	agg, err := s.store.SubmitReview(ctx, review, func(current domain.AggregateRating) domain.AggregateRating {
		return Next(current, stars)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return Result{}, &Error{Kind: KindNotFound, Message: msgNotFound, Err: err}
		case errors.Is(err, repository.ErrNotModified):
			return Result{}, &Error{Kind: KindWriteConflict, Message: msgUpdateFailed, Err: err}
		default:
			s.logger.Error().Err(err).Str("recipe_id", sub.RecipeID).Msg("submit review failed")
			return Result{}, &Error{Kind: KindInternal, Message: msgInternal, Err: err}
		}
	}

	s.logger.Info().
		Str("recipe_id", sub.RecipeID).
		Int("rating", stars).
		Float64("rating_value", agg.RatingValue).
		Int64("rating_count", agg.RatingCount).
		Msg("review accepted")

	return Result{
		Message:        msgAccepted,
		NewRatingValue: agg.RatingValue,
		NewRatingCount: agg.RatingCount,
	}, nil
}

// Validate checks sub in order and stops at the first violation. It returns
// the star count and the trimmed comment.
func Validate(sub Submission) (int, string, error) {
	if !domain.IsRecipeID(sub.RecipeID) {
		return 0, "", invalid(fmt.Sprintf("Invalid recipeId received: %s", sub.RecipeID))
	}
	r := sub.Rating
	if r == 0 || math.IsNaN(r) || r < MinRating || r > MaxRating || r != math.Trunc(r) {
		return 0, "", invalid(msgInvalidRating)
	}
	comment := strings.TrimSpace(sub.Comment)
	if comment == "" {
		return 0, "", invalid(msgCommentMissing)
	}
	return int(r), comment, nil
}

// Next folds one more star rating into current.
func Next(current domain.AggregateRating, stars int) domain.AggregateRating {
	count := current.RatingCount
	if count < 0 {
		count = 0
	}
	total := current.RatingValue*float64(count) + float64(stars)
	newCount := count + 1
	return domain.AggregateRating{
		RatingValue: Round2(total / float64(newCount)),
		RatingCount: newCount,
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
