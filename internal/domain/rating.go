package domain

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Default aggregate assigned to newly authored recipes.
const (
	DefaultRatingValue = 4.5
	DefaultRatingCount = 1
)

// AggregateRating is the running mean and count of all star ratings for a
// recipe.
type AggregateRating struct {
	RatingValue float64 `json:"ratingValue"`
	RatingCount int64   `json:"ratingCount"`
}

// DefaultAggregateRating returns the aggregate given to new recipes.
func DefaultAggregateRating() AggregateRating {
	return AggregateRating{RatingValue: DefaultRatingValue, RatingCount: DefaultRatingCount}
}

// UnmarshalJSON accepts numbers or numeric strings for both fields, since
// imported documents store them either way.
func (a *AggregateRating) UnmarshalJSON(data []byte) error {
	var raw struct {
		RatingValue json.RawMessage `json:"ratingValue"`
		RatingCount json.RawMessage `json:"ratingCount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	value, err := numericField(raw.RatingValue)
	if err != nil {
		return fmt.Errorf("ratingValue: %w", err)
	}
	count, err := numericField(raw.RatingCount)
	if err != nil {
		return fmt.Errorf("ratingCount: %w", err)
	}
	a.RatingValue = value
	a.RatingCount = int64(count)
	return nil
}

func numericField(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

// Review is a single submitted star rating with its comment. Approved is
// always true on insert; no moderation step reads it.
type Review struct {
	ID        int64     `json:"id"`
	RecipeID  string    `json:"recipeId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	Approved  bool      `json:"approved"`
}
