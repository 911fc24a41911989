package domain

import (
	"strings"
	"time"
)

// Image references an uploaded or external picture.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Ingredient is one line of a recipe's ingredient list. Amount is display
// text and may use a comma as decimal separator.
type Ingredient struct {
	Amount  string `json:"amount"`
	Unit    string `json:"unit"`
	Product string `json:"product"`
}

// IsSectionHeader reports whether the entry only labels the ingredients that
// follow it.
func (i Ingredient) IsSectionHeader() bool {
	return strings.TrimSpace(i.Amount) == "" && strings.TrimSpace(i.Unit) == ""
}

// Text renders "amount unit product" without surplus spaces.
func (i Ingredient) Text() string {
	return strings.Join(strings.Fields(i.Amount+" "+i.Unit+" "+i.Product), " ")
}

// Step is one instruction of the method.
type Step struct {
	Step  string  `json:"step"`
	Image []Image `json:"image,omitempty"`
}

// Nutrition carries the optional nutrition block.
type Nutrition struct {
	Calories string `json:"calories,omitempty"`
}

// Recipe is the canonical recipe document.
type Recipe struct {
	ID              string          `json:"_id"`
	Slug            string          `json:"slug"`
	SlugHistory     []string        `json:"slugHistory,omitempty"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Keywords        string          `json:"keywords,omitempty"`
	Servings        string          `json:"servings,omitempty"`
	PrepTime        string          `json:"prepTime,omitempty"`
	CookingTime     string          `json:"cookingTime,omitempty"`
	TotalTime       string          `json:"totalTime,omitempty"`
	RecipeCategory  string          `json:"recipeCategory,omitempty"`
	RecipeCuisine   string          `json:"recipeCuisine,omitempty"`
	DatePublished   string          `json:"datePublished,omitempty"`
	Image           []Image         `json:"image,omitempty"`
	Ingredients     []Ingredient    `json:"ingredients"`
	Steps           []Step          `json:"steps,omitempty"`
	Nutrition       *Nutrition      `json:"nutrition,omitempty"`
	AggregateRating AggregateRating `json:"aggregateRating"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}
