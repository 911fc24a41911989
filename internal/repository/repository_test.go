package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/testsupport"
)

type testEnv struct {
	ctx        context.Context
	repository *Repository
}

func newTestEnv(t testing.TB) *testEnv {
	t.Helper()
	st := testsupport.NewStore(t, "recipes_test")
	return &testEnv{ctx: context.Background(), repository: New(st)}
}

func mustCreateRecipe(t testing.TB, env *testEnv, name, published string) domain.Recipe {
	t.Helper()
	recipe, err := env.repository.Recipes.Create(env.ctx, domain.Recipe{
		Name:           name,
		Description:    "Saftig och enkel",
		Keywords:       "choklad, kaka",
		Servings:       "12 bitar",
		RecipeCategory: "Kakor",
		DatePublished:  published,
		Ingredients: []domain.Ingredient{
			{Amount: "", Unit: "", Product: "Botten"},
			{Amount: "2", Unit: "dl", Product: "vetemjöl"},
			{Amount: "1,5", Unit: "msk", Product: "kakao"},
		},
		Steps: []domain.Step{{Step: "Blanda allt."}},
	})
	if err != nil {
		t.Fatalf("create recipe %q: %v", name, err)
	}
	return recipe
}

func mean(stars int) AggregateFunc {
	return func(cur domain.AggregateRating) domain.AggregateRating {
		v := (cur.RatingValue*float64(cur.RatingCount) + float64(stars)) / float64(cur.RatingCount+1)
		return domain.AggregateRating{RatingValue: math.Round(v*100) / 100, RatingCount: cur.RatingCount + 1}
	}
}

func TestRecipesRepository_CreateDefaults(t *testing.T) {
	env := newTestEnv(t)

	recipe := mustCreateRecipe(t, env, "Kladdkaka med grädde", "2024-03-01")
	if !domain.IsRecipeID(recipe.ID) {
		t.Fatalf("id %q is not a recipe id", recipe.ID)
	}
	if recipe.Slug != "kladdkaka-med-gradde" {
		t.Fatalf("slug = %q", recipe.Slug)
	}
	if recipe.AggregateRating != domain.DefaultAggregateRating() {
		t.Fatalf("aggregate = %+v, want default", recipe.AggregateRating)
	}
	if len(recipe.Ingredients) != 3 || recipe.Ingredients[2].Amount != "1,5" {
		t.Fatalf("ingredients not round-tripped: %+v", recipe.Ingredients)
	}
	if recipe.Nutrition != nil {
		t.Fatalf("nutrition should stay nil")
	}

	if _, err := env.repository.Recipes.Create(env.ctx, domain.Recipe{Name: "Kladdkaka med grädde"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate slug error = %v, want ErrConflict", err)
	}
	if _, err := env.repository.Recipes.GetByID(env.ctx, domain.NewRecipeID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown id error = %v, want ErrNotFound", err)
	}
}

func TestRecipesRepository_UpdateKeepsSlugHistory(t *testing.T) {
	env := newTestEnv(t)
	recipe := mustCreateRecipe(t, env, "Äppelpaj", "2024-01-01")

	recipe.Name = "Äppelpaj med kanel"
	recipe.Slug = ""
	updated, err := env.repository.Recipes.Update(env.ctx, recipe.ID, recipe)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Slug != "appelpaj-med-kanel" {
		t.Fatalf("slug = %q", updated.Slug)
	}
	if len(updated.SlugHistory) != 1 || updated.SlugHistory[0] != "appelpaj" {
		t.Fatalf("slug history = %v", updated.SlugHistory)
	}
	if updated.AggregateRating != recipe.AggregateRating {
		t.Fatalf("update must not touch the aggregate")
	}

	old, err := env.repository.Recipes.GetBySlug(env.ctx, "appelpaj")
	if err != nil || old.ID != recipe.ID {
		t.Fatalf("lookup by old slug: %v %+v", err, old)
	}

	if _, err := env.repository.Recipes.Update(env.ctx, domain.NewRecipeID(), recipe); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown = %v, want ErrNotFound", err)
	}
	if err := env.repository.Recipes.Delete(env.ctx, recipe.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := env.repository.Recipes.Delete(env.ctx, recipe.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete = %v, want ErrNotFound", err)
	}
}

func TestRecipesRepository_ListPageAndSearch(t *testing.T) {
	env := newTestEnv(t)
	for i := 1; i <= 5; i++ {
		mustCreateRecipe(t, env, fmt.Sprintf("Kaka %d", i), fmt.Sprintf("2024-01-0%d", i))
	}
	if _, err := env.repository.Recipes.Create(env.ctx, domain.Recipe{Name: "Lax i ugn", Keywords: "fisk", DatePublished: "2023-12-24"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := env.repository.Recipes.ListPage(env.ctx, RecipePageFilters{PerPage: 2})
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if page.TotalCount != 6 || len(page.Items) != 2 || page.Items[0].Name != "Kaka 5" {
		t.Fatalf("first page = %d items, total %d, first %q", len(page.Items), page.TotalCount, page.Items[0].Name)
	}

	last, err := env.repository.Recipes.ListPage(env.ctx, RecipePageFilters{PerPage: 2, Offset: 4})
	if err != nil {
		t.Fatalf("ListPage last: %v", err)
	}
	if len(last.Items) != 2 || last.Items[1].Name != "Lax i ugn" {
		t.Fatalf("last page = %+v", last.Items)
	}

	filtered, err := env.repository.Recipes.ListPage(env.ctx, RecipePageFilters{Term: "FISK", PerPage: 9})
	if err != nil {
		t.Fatalf("ListPage filtered: %v", err)
	}
	if filtered.TotalCount != 1 || filtered.Items[0].Name != "Lax i ugn" {
		t.Fatalf("filtered = %+v", filtered)
	}

	found, err := env.repository.Recipes.Search(env.ctx, "saftig", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 5 {
		t.Fatalf("search hits = %d, want 5", len(found))
	}
	none, err := env.repository.Recipes.Search(env.ctx, "100%", 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("wildcards must be literal: %v %d", err, len(none))
	}

	refs, err := env.repository.Recipes.Refs(env.ctx)
	if err != nil || len(refs) != 6 {
		t.Fatalf("Refs = %d, %v", len(refs), err)
	}
}

func TestRecipesRepository_CursorList(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreateRecipe(t, env, "Recept A", "2024-01-01")
	b := mustCreateRecipe(t, env, "Recept B", "2024-01-02")

	filters := RecipeListFilters{Limit: 1}
	first, err := env.repository.Recipes.List(env.ctx, filters)
	if err != nil {
		t.Fatalf("List first page: %v", err)
	}
	if len(first.Items) != 1 || first.NextCursor == nil {
		t.Fatalf("first page = %+v", first)
	}

	cursor, err := DecodeCursor(*first.NextCursor)
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	filters.Cursor = cursor
	second, err := env.repository.Recipes.List(env.ctx, filters)
	if err != nil {
		t.Fatalf("List second page: %v", err)
	}
	if len(second.Items) != 1 || second.Items[0].ID == first.Items[0].ID {
		t.Fatalf("pagination returned duplicate recipe")
	}
	seen := map[string]bool{first.Items[0].ID: true, second.Items[0].ID: true}
	if !seen[a.ID] || !seen[b.ID] {
		t.Fatalf("pages missed a recipe")
	}

	if _, err := DecodeCursor("not base64!"); err == nil {
		t.Fatalf("expected error for malformed cursor")
	}
}

func TestReviewsRepository_SubmitReview(t *testing.T) {
	env := newTestEnv(t)
	recipe := mustCreateRecipe(t, env, "Kanelbullar", "2024-02-02")

	review := domain.Review{RecipeID: recipe.ID, Rating: 5, Comment: "Great", Approved: true, CreatedAt: time.Now().UTC()}
	agg, err := env.repository.Reviews.SubmitReview(env.ctx, review, mean(5))
	if err != nil {
		t.Fatalf("SubmitReview: %v", err)
	}
	if agg.RatingValue != 4.75 || agg.RatingCount != 2 {
		t.Fatalf("aggregate = %+v, want 4.75/2", agg)
	}

	stored, err := env.repository.Recipes.GetByID(env.ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.AggregateRating != agg {
		t.Fatalf("stored aggregate = %+v, want %+v", stored.AggregateRating, agg)
	}

	reviews, err := env.repository.Reviews.ListByRecipe(env.ctx, recipe.ID, 0)
	if err != nil {
		t.Fatalf("ListByRecipe: %v", err)
	}
	if len(reviews) != 1 || reviews[0].Comment != "Great" || reviews[0].Rating != 5 || !reviews[0].Approved {
		t.Fatalf("reviews = %+v", reviews)
	}

	review.RecipeID = domain.NewRecipeID()
	if _, err := env.repository.Reviews.SubmitReview(env.ctx, review, mean(5)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown recipe = %v, want ErrNotFound", err)
	}
}

func TestReviewsRepository_FailedInsertRollsBackAggregate(t *testing.T) {
	env := newTestEnv(t)
	recipe := mustCreateRecipe(t, env, "Morotskaka", "2024-02-03")

	// A blank comment violates the table check, after the aggregate update.
	bad := domain.Review{RecipeID: recipe.ID, Rating: 4, Comment: "   ", Approved: true, CreatedAt: time.Now()}
	if _, err := env.repository.Reviews.SubmitReview(env.ctx, bad, mean(4)); err == nil {
		t.Fatalf("expected check violation")
	}

	stored, err := env.repository.Recipes.GetByID(env.ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.AggregateRating != domain.DefaultAggregateRating() {
		t.Fatalf("aggregate changed despite rollback: %+v", stored.AggregateRating)
	}
}

func TestReviewsRepository_ConcurrentSubmitsKeepEveryVote(t *testing.T) {
	env := newTestEnv(t)
	recipe := mustCreateRecipe(t, env, "Semla", "2024-02-13")

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			review := domain.Review{RecipeID: recipe.ID, Rating: 5, Comment: fmt.Sprintf("mums %d", i), Approved: true, CreatedAt: time.Now()}
			if _, err := env.repository.Reviews.SubmitReview(env.ctx, review, mean(5)); err != nil {
				t.Errorf("submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	stored, err := env.repository.Recipes.GetByID(env.ctx, recipe.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.AggregateRating.RatingCount != workers+1 {
		t.Fatalf("rating count = %d, want %d", stored.AggregateRating.RatingCount, workers+1)
	}
	reviews, err := env.repository.Reviews.ListByRecipe(env.ctx, recipe.ID, 0)
	if err != nil || len(reviews) != workers {
		t.Fatalf("reviews = %d, %v", len(reviews), err)
	}
}

func TestCategoriesPagesSettings(t *testing.T) {
	env := newTestEnv(t)

	err := env.repository.Categories.ReplaceAll(env.ctx, []domain.Category{
		{Slug: "tartor", Name: "Tårtor", FilterTerm: "tårta"},
		{Slug: "bullar", Name: "Bullar", FilterTerm: "bulle"},
	})
	if err != nil {
		t.Fatalf("ReplaceAll categories: %v", err)
	}
	cats, err := env.repository.Categories.List(env.ctx)
	if err != nil || len(cats) != 2 || cats[0].Slug != "bullar" {
		t.Fatalf("categories = %+v, %v", cats, err)
	}
	if _, err := env.repository.Categories.GetBySlug(env.ctx, "saknas"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing category = %v", err)
	}
	dup := []domain.Category{{Slug: "a", Name: "A"}, {Slug: "a", Name: "B"}}
	if err := env.repository.Categories.ReplaceAll(env.ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate slugs = %v, want ErrConflict", err)
	}
	if cats, _ := env.repository.Categories.List(env.ctx); len(cats) != 2 {
		t.Fatalf("failed replace must leave the old set, got %d", len(cats))
	}

	if err := env.repository.Pages.ReplaceAll(env.ctx, []domain.Page{
		{Key: "about", Path: "/om-oss", Title: "Om oss", Content: []byte(`{"text":"Hej"}`)},
	}); err != nil {
		t.Fatalf("ReplaceAll pages: %v", err)
	}
	pages, err := env.repository.Pages.List(env.ctx)
	if err != nil || len(pages) != 1 {
		t.Fatalf("pages = %+v, %v", pages, err)
	}
	pages[0].Title = "Om bakatårta"
	pages = append(pages, domain.Page{ID: domain.NewRecipeID(), Key: "ghost"})
	modified, err := env.repository.Pages.BulkUpdate(env.ctx, pages)
	if err != nil || modified != 1 {
		t.Fatalf("BulkUpdate = %d, %v", modified, err)
	}

	got, err := env.repository.Settings.Get(env.ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty settings = %v, %v", got, err)
	}
	if err := env.repository.Settings.Upsert(env.ctx, domain.Settings{"title": "A", "_id": "x", "key": "y"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := env.repository.Settings.Upsert(env.ctx, domain.Settings{"author": "B"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err = env.repository.Settings.Get(env.ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got["title"] != "A" || got["author"] != "B" || got["_id"] != nil || got["key"] != nil {
		t.Fatalf("settings = %v", got)
	}
}

func BenchmarkReviewsRepositorySubmit(b *testing.B) {
	env := newTestEnv(b)
	recipe := mustCreateRecipe(b, env, "Bench Kaka", "2024-01-01")

	for i := 0; i < b.N; i++ {
		review := domain.Review{RecipeID: recipe.ID, Rating: 1 + i%5, Comment: "bench", Approved: true, CreatedAt: time.Now()}
		if _, err := env.repository.Reviews.SubmitReview(env.ctx, review, mean(review.Rating)); err != nil {
			b.Fatalf("submit: %v", err)
		}
	}
}
