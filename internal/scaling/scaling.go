// Package scaling recomputes ingredient quantities for a chosen number of
// servings.
package scaling

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Clark-Hu/bakatarta/internal/domain"
)

// DefaultServings is used when the recipe yield text carries no number.
const DefaultServings = 12

var firstInteger = regexp.MustCompile(`\d+`)

// ParseBaseServings extracts the first integer of a free-text yield such as
// "12 bitar" or "ca 8-10 portioner".
func ParseBaseServings(text string) int {
	match := firstInteger.FindString(text)
	if match == "" {
		return DefaultServings
	}
	n, err := strconv.Atoi(match)
	if err != nil || n <= 0 {
		return DefaultServings
	}
	return n
}

// ParseAmount normalizes a comma decimal separator and parses the amount.
// Section headers and free-text amounts report ok=false.
func ParseAmount(amount string) (float64, bool) {
	s := strings.TrimSpace(strings.Replace(amount, ",", ".", 1))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Round applies the display precision tiers: two decimals below one, one
// decimal below ten, whole numbers from ten upwards.
func Round(v float64) float64 {
	switch {
	case v > 0 && v < 1:
		return math.Round(v*100) / 100
	case v < 10:
		return math.Round(v*10) / 10
	default:
		return math.Round(v)
	}
}

// FormatAmount renders v with the fewest digits that represent it.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Scale returns ingredients recomputed from base to target servings. A
// target that is not a positive number leaves the list unscaled. The input
// slice is never modified.
func Scale(ingredients []domain.Ingredient, base int, target float64) []domain.Ingredient {
	if !(target > 0) || math.IsInf(target, 0) || base <= 0 {
		return ingredients
	}
	factor := target / float64(base)

	scaled := make([]domain.Ingredient, len(ingredients))
	for i, ing := range ingredients {
		scaled[i] = ing
		if ing.IsSectionHeader() {
			continue
		}
		amount, ok := ParseAmount(ing.Amount)
		if !ok {
			continue
		}
		scaled[i].Amount = FormatAmount(Round(amount * factor))
	}
	return scaled
}
