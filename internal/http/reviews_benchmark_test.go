package httpserver

import (
	"net/http"
	"testing"
)

func BenchmarkHandleSubmitReview(b *testing.B) {
	ts := buildTestServer(b)
	recipe := ts.mustCreateRecipe(b, "Benchmarkkaka", "2024-01-01")
	body := `{"recipeId":"` + recipe.ID + `","rating":4,"comment":"Gott"}`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := ts.do(b, http.MethodPost, "/api/submit-review", body, "")
		if rec.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
