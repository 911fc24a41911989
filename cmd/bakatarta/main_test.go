package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
	"github.com/Clark-Hu/bakatarta/internal/scaling"
	"github.com/Clark-Hu/bakatarta/internal/testsupport"
)

func writeFile(t *testing.T, dir, name, payload string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const exportedRecipes = `[
  {
    "name": "Kladdkaka",
    "slug": "kladdkaka",
    "servings": "8 bitar",
    "datePublished": "2023-11-02",
    "ingredients": [{"amount": "2", "unit": "dl", "product": "socker"}],
    "aggregateRating": {"ratingValue": "4.8", "ratingCount": "12"}
  },
  {
    "name": "Sockerkaka",
    "ingredients": []
  }
]`

func TestLoadImportSet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, recipesFile, exportedRecipes)
	writeFile(t, dir, pagesFile, `[]`)
	writeFile(t, dir, settingsFile, `{"title":"bakatårta.se","postsPerPage":9}`)

	set, err := loadImportSet(dir)
	if err != nil {
		t.Fatalf("loadImportSet: %v", err)
	}
	if len(set.Recipes) != 2 {
		t.Fatalf("recipes = %d, want 2", len(set.Recipes))
	}
	if agg := set.Recipes[0].AggregateRating; agg.RatingValue != 4.8 || agg.RatingCount != 12 {
		t.Fatalf("string aggregate not coerced: %+v", agg)
	}
	if set.Pages == nil || len(set.Pages) != 0 {
		t.Fatalf("pages = %#v, want empty non-nil", set.Pages)
	}
	if set.Categories != nil {
		t.Fatalf("missing categories file should leave nil, got %#v", set.Categories)
	}
	if set.Settings["title"] != "bakatårta.se" {
		t.Fatalf("settings = %v", set.Settings)
	}
}

func TestLoadImportSetRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, recipesFile, exportedRecipes)
	writeFile(t, dir, categoriesFile, `[{"slug": "kakor",`)

	_, err := loadImportSet(dir)
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") || !strings.Contains(err.Error(), categoriesFile) {
		t.Fatalf("error = %v, want invalid JSON in %s", err, categoriesFile)
	}
}

func TestImportApply(t *testing.T) {
	st := testsupport.NewStore(t, "bakatarta_cli_test")
	repo := repository.New(st)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, dir, recipesFile, exportedRecipes)
	writeFile(t, dir, categoriesFile, `[{"slug":"kakor","filterTerm":"kaka","name":"Kakor"}]`)
	writeFile(t, dir, pagesFile, `[]`)
	writeFile(t, dir, settingsFile, `{"_id":"abc","title":"bakatårta.se"}`)

	set, err := loadImportSet(dir)
	if err != nil {
		t.Fatalf("loadImportSet: %v", err)
	}
	var out bytes.Buffer
	if err := set.apply(ctx, repo, &out); err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, want := range []string{"recipes: 2 imported", "pages: no documents", "categories: 1 imported", "settings: replaced"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}

	kladdkaka, err := repo.Recipes.GetBySlug(ctx, "kladdkaka")
	if err != nil {
		t.Fatalf("imported recipe: %v", err)
	}
	if kladdkaka.AggregateRating.RatingCount != 12 || !domain.IsRecipeID(kladdkaka.ID) {
		t.Fatalf("imported recipe = %+v", kladdkaka)
	}
	if _, err := repo.Recipes.GetBySlug(ctx, "sockerkaka"); err != nil {
		t.Fatalf("slug should be derived from the name: %v", err)
	}

	settings, err := repo.Settings.Get(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if _, ok := settings["_id"]; ok || settings["title"] != "bakatårta.se" {
		t.Fatalf("settings = %v", settings)
	}

	// A second import with an empty recipes file keeps what is stored.
	writeFile(t, dir, recipesFile, `[]`)
	set, err = loadImportSet(dir)
	if err != nil {
		t.Fatalf("loadImportSet: %v", err)
	}
	out.Reset()
	if err := set.apply(ctx, repo, &out); err != nil {
		t.Fatalf("apply: %v", err)
	}
	page, err := repo.Recipes.ListPage(ctx, repository.RecipePageFilters{PerPage: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 2 {
		t.Fatalf("recipes after empty import = %d, want 2", page.TotalCount)
	}
}

func TestAcquireLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.lock")

	first, err := acquireLock(path)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := acquireLock(path); !errors.Is(err, errLocked) {
		t.Fatalf("second lock error = %v, want errLocked", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	again, err := acquireLock(path)
	if err != nil {
		t.Fatalf("lock after unlock: %v", err)
	}
	_ = again.Unlock()
}

func TestRenderScaled(t *testing.T) {
	recipe := domain.Recipe{
		Name:     "Kladdkaka",
		Servings: "4 portioner",
		Ingredients: []domain.Ingredient{
			{Product: "Smet"},
			{Amount: "2", Unit: "dl", Product: "socker"},
			{Amount: "efter smak", Product: "grädde"},
		},
	}
	state := scaling.NewServingState(recipe.Servings)
	state.Set(8)

	got := renderScaled(recipe, state)
	for _, want := range []string{"Kladdkaka (8 of 4 servings)", "SMET", "socker", "efter smak", "╭"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if !strings.Contains(got, "4 │ dl") {
		t.Fatalf("amount not scaled:\n%s", got)
	}
}

func TestRenderTableEmpty(t *testing.T) {
	if got := renderTable(nil, nil, nil); got != "" {
		t.Fatalf("renderTable(nil) = %q", got)
	}
}

func TestHashPasswordCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("hemligt\n"))
	cmd.SetArgs([]string{"hash-password"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("hemligt")); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}

	cmd = newRootCommand()
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs([]string{"hash-password"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for empty stdin")
	}
}

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, name := range []string{"migrate", "import", "scale", "token", "hash-password"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("help missing %q:\n%s", name, out.String())
		}
	}
}
