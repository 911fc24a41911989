// Package pagination holds page-number arithmetic and the public page links
// of the recipe and category listings.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Page describes one page of a listing.
type Page struct {
	Number     int
	PerPage    int
	TotalCount int64
}

// New clamps number to at least one and perPage to at least one.
func New(number, perPage int, total int64) Page {
	if number < 1 {
		number = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	return Page{Number: number, PerPage: perPage, TotalCount: total}
}

// Offset is the number of items preceding the page. It saturates at
// math.MaxInt for page numbers whose offset does not fit an int.
func (p Page) Offset() int {
	if p.Number-1 > math.MaxInt/p.PerPage {
		return math.MaxInt
	}
	return (p.Number - 1) * p.PerPage
}

// TotalPages is ceil(total/perPage).
func (p Page) TotalPages() int {
	if p.TotalCount <= 0 {
		return 0
	}
	return int((p.TotalCount + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// OutOfRange reports a page past the last one of a non-empty listing.
func (p Page) OutOfRange() bool {
	return p.TotalCount > 0 && p.Number > p.TotalPages()
}

// HasPrev reports whether a previous page exists.
func (p Page) HasPrev() bool {
	return p.Number > 1
}

// HasNext reports whether a following page exists.
func (p Page) HasNext() bool {
	return p.Number < p.TotalPages()
}

// ParseNumber reads a page number; empty or invalid input means page one.
// Positive numbers too large for an int become math.MaxInt so they land past
// the last page instead of back on the first.
func ParseNumber(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) && n > 0 {
		return math.MaxInt
	}
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// RecipePageLink returns the public path of page n of the recipe listing.
func RecipePageLink(n int) string {
	if n <= 1 {
		return "/recept"
	}
	return fmt.Sprintf("/recept/list/%d", n)
}

// CategoryPageLink returns the public path of page n of a category listing.
func CategoryPageLink(slug string, n int) string {
	if n <= 1 {
		return "/kategori/" + slug
	}
	return fmt.Sprintf("/kategori/%s/list/%d", slug, n)
}

// Links returns the previous and next links for p using link, empty when
// there is no such page.
func (p Page) Links(link func(int) string) (prev, next string) {
	if p.HasPrev() {
		prev = link(p.Number - 1)
	}
	if p.HasNext() {
		next = link(p.Number + 1)
	}
	return prev, next
}
