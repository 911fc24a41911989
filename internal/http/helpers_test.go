package httpserver

import (
	"encoding/base64"
	"math"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/Clark-Hu/bakatarta/internal/config"
	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/rating"
	"github.com/Clark-Hu/bakatarta/internal/repository"
)

func TestBuildRecipeListFilters(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	token := encodeTestCursor(t, repository.RecipeCursor{CreatedAt: created, ID: "5f1d7a2b3c4d5e6f7a8b9c0d"})

	values := url.Values{"limit": {" 15 "}, "cursor": {token}}
	filters, err := buildRecipeListFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if filters.Limit != 15 {
		t.Fatalf("limit = %d, want 15", filters.Limit)
	}
	if filters.Cursor == nil || !filters.Cursor.CreatedAt.Equal(created) || filters.Cursor.ID != "5f1d7a2b3c4d5e6f7a8b9c0d" {
		t.Fatalf("cursor = %+v", filters.Cursor)
	}

	invalid := []url.Values{
		{"limit": {"abc"}},
		{"limit": {"-1"}},
		{"cursor": {"!!"}},
		{"cursor": {base64.StdEncoding.EncodeToString([]byte("not-json"))}},
		{"cursor": {base64.StdEncoding.EncodeToString([]byte(`{"id":""}`))}},
	}
	for _, values := range invalid {
		if _, err := buildRecipeListFilters(values); err == nil {
			t.Fatalf("%v: expected error", values)
		}
	}

	empty, err := buildRecipeListFilters(url.Values{})
	if err != nil || empty.Limit != 0 || empty.Cursor != nil {
		t.Fatalf("empty query = %+v, %v", empty, err)
	}
}

func encodeTestCursor(t *testing.T, c repository.RecipeCursor) string {
	t.Helper()
	payload, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal cursor: %v", err)
	}
	return base64.StdEncoding.EncodeToString(payload)
}

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Bearer ", "", false},
		{"Bearer", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, c := range cases {
		token, ok := bearerToken(c.header)
		if token != c.token || ok != c.ok {
			t.Fatalf("bearerToken(%q) = %q,%v want %q,%v", c.header, token, ok, c.token, c.ok)
		}
	}
}

func TestFieldPath(t *testing.T) {
	cases := map[string]string{
		"recipeRequest.name":                   "name",
		"recipeRequest.ingredients[0].product": "ingredients[0].product",
		"name":                                 "name",
	}
	for in, want := range cases {
		if got := fieldPath(in); got != want {
			t.Fatalf("fieldPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecipeRequestValidation(t *testing.T) {
	valid := recipeRequest{
		Name:        "Kladdkaka",
		Ingredients: []ingredientRequest{{Product: "Botten"}, {Amount: "2", Unit: "dl", Product: "socker"}},
		Steps:       []stepRequest{{Step: "Blanda."}},
	}
	if err := validate.Struct(valid); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	missingProduct := valid
	missingProduct.Ingredients = []ingredientRequest{{Amount: "2", Unit: "dl"}}
	if err := validate.Struct(missingProduct); err == nil {
		t.Fatalf("expected error for ingredient without product")
	}

	recipe := valid.toRecipe()
	if recipe.Name != "Kladdkaka" || len(recipe.Ingredients) != 2 || !recipe.Ingredients[0].IsSectionHeader() {
		t.Fatalf("toRecipe = %+v", recipe)
	}
	if recipe.Image != nil {
		t.Fatalf("empty image list should stay nil")
	}
}

func TestLooseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		nan  bool
	}{
		{`5`, 5, false},
		{`"4"`, 4, false},
		{`" 3 "`, 3, false},
		{`4.5`, 4.5, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"fem"`, 0, true},
		{`true`, 0, true},
		{`[1]`, 0, true},
	}
	for _, c := range cases {
		var n looseNumber
		if err := json.Unmarshal([]byte(c.in), &n); err != nil {
			t.Fatalf("%s: unexpected error %v", c.in, err)
		}
		got := float64(n)
		if c.nan {
			if !math.IsNaN(got) {
				t.Fatalf("%s: got %v, want NaN", c.in, got)
			}
			continue
		}
		if got != c.want {
			t.Fatalf("%s: got %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseServings(t *testing.T) {
	cases := map[string]int{"6": 6, " 12 ": 12, "1": 1}
	for in, want := range cases {
		if got, ok := parseServings(in); !ok || got != want {
			t.Fatalf("parseServings(%q) = %d,%v", in, got, ok)
		}
	}
	for _, in := range []string{"", "0", "-1", "abc", "2.5", "100000"} {
		if _, ok := parseServings(in); ok {
			t.Fatalf("parseServings(%q) should be rejected", in)
		}
	}
}

func TestPostsPerPage(t *testing.T) {
	srv := &Server{cfg: config.Config{PostsPerPage: 9}}
	cases := []struct {
		value any
		want  int
	}{
		{float64(6), 6},
		{12, 12},
		{"4", 4},
		{"", 9},
		{float64(0), 9},
		{float64(2.5), 9},
		{float64(500), 9},
		{nil, 9},
		{true, 9},
	}
	for _, c := range cases {
		got := srv.postsPerPage(domain.Settings{"postsPerPage": c.value})
		if got != c.want {
			t.Fatalf("postsPerPage(%v) = %d, want %d", c.value, got, c.want)
		}
	}
}

func TestSiteURL(t *testing.T) {
	srv := &Server{cfg: config.Config{SiteURL: "https://bakatarta.se/"}}
	if got := srv.siteURL(domain.Settings{}); got != "https://bakatarta.se" {
		t.Fatalf("fallback = %q", got)
	}
	if got := srv.siteURL(domain.Settings{"siteUrl": " https://example.se/ "}); got != "https://example.se" {
		t.Fatalf("stored = %q", got)
	}
}

func TestReviewErrorStatus(t *testing.T) {
	cases := map[rating.Kind]int{
		rating.KindValidation:    http.StatusUnprocessableEntity,
		rating.KindNotFound:      http.StatusNotFound,
		rating.KindWriteConflict: http.StatusConflict,
		rating.KindInternal:      http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got, _ := reviewErrorStatus(kind); got != want {
			t.Fatalf("%s => %d, want %d", kind, got, want)
		}
	}
}
