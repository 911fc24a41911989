package scaling

import "github.com/Clark-Hu/bakatarta/internal/domain"

// ServingState tracks the servings a reader has dialed in for one recipe.
type ServingState struct {
	Base    int
	Current int
}

// NewServingState starts at the recipe's own yield.
func NewServingState(servingsText string) ServingState {
	base := ParseBaseServings(servingsText)
	return ServingState{Base: base, Current: base}
}

// Increment adds one serving.
func (s *ServingState) Increment() {
	s.Current++
}

// Decrement removes one serving, never going below one.
func (s *ServingState) Decrement() {
	s.Set(s.Current - 1)
}

// Set moves to n servings, clamped to at least one.
func (s *ServingState) Set(n int) {
	if n < 1 {
		n = 1
	}
	s.Current = n
}

// Reset re-initializes the state for a different recipe.
func (s *ServingState) Reset(servingsText string) {
	*s = NewServingState(servingsText)
}

// Apply scales ingredients to the current servings.
func (s ServingState) Apply(ingredients []domain.Ingredient) []domain.Ingredient {
	return Scale(ingredients, s.Base, float64(s.Current))
}
