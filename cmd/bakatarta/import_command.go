package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
)

const (
	recipesFile    = "recipes.json"
	pagesFile      = "pages.json"
	categoriesFile = "categories.json"
	settingsFile   = "siteConfig.json"
)

// importSet is the parsed content of an export directory. A nil slice means
// the file was absent; an empty one means it held no documents. Either way
// the stored collection is left alone.
type importSet struct {
	Recipes    []domain.Recipe
	Pages      []domain.Page
	Categories []domain.Category
	Settings   domain.Settings
}

// loadImportSet parses every known file in dir before anything is written,
// so a malformed file aborts the whole import.
func loadImportSet(dir string) (importSet, error) {
	var set importSet
	if err := readJSONFile(filepath.Join(dir, recipesFile), &set.Recipes); err != nil {
		return set, err
	}
	if err := readJSONFile(filepath.Join(dir, pagesFile), &set.Pages); err != nil {
		return set, err
	}
	if err := readJSONFile(filepath.Join(dir, categoriesFile), &set.Categories); err != nil {
		return set, err
	}
	if err := readJSONFile(filepath.Join(dir, settingsFile), &set.Settings); err != nil {
		return set, err
	}
	return set, nil
}

func readJSONFile(path string, dst any) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

// apply writes the set. Collections are replaced wholesale; the settings
// document is overwritten.
func (set importSet) apply(ctx context.Context, repo *repository.Repository, out io.Writer) error {
	switch {
	case set.Recipes == nil:
		fmt.Fprintf(out, "recipes: skipped (%s not found)\n", recipesFile)
	case len(set.Recipes) == 0:
		fmt.Fprintln(out, "recipes: no documents, existing data kept")
	default:
		n, err := repo.Recipes.ReplaceAll(ctx, set.Recipes)
		if err != nil {
			return fmt.Errorf("import recipes: %w", err)
		}
		fmt.Fprintf(out, "recipes: %d imported\n", n)
	}

	switch {
	case set.Pages == nil:
		fmt.Fprintf(out, "pages: skipped (%s not found)\n", pagesFile)
	case len(set.Pages) == 0:
		fmt.Fprintln(out, "pages: no documents, existing data kept")
	default:
		if err := repo.Pages.ReplaceAll(ctx, set.Pages); err != nil {
			return fmt.Errorf("import pages: %w", err)
		}
		fmt.Fprintf(out, "pages: %d imported\n", len(set.Pages))
	}

	switch {
	case set.Categories == nil:
		fmt.Fprintf(out, "categories: skipped (%s not found)\n", categoriesFile)
	case len(set.Categories) == 0:
		fmt.Fprintln(out, "categories: no documents, existing data kept")
	default:
		if err := repo.Categories.ReplaceAll(ctx, set.Categories); err != nil {
			return fmt.Errorf("import categories: %w", err)
		}
		fmt.Fprintf(out, "categories: %d imported\n", len(set.Categories))
	}

	if set.Settings == nil {
		fmt.Fprintf(out, "settings: skipped (%s not found)\n", settingsFile)
		return nil
	}
	if err := repo.Settings.Replace(ctx, set.Settings); err != nil {
		return fmt.Errorf("import settings: %w", err)
	}
	fmt.Fprintln(out, "settings: replaced")
	return nil
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		dir      string
		lockPath string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load recipes, pages, categories and settings from JSON exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := loadImportSet(dir)
			if err != nil {
				return err
			}

			lock, err := acquireLock(lockPath)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.Migrate(cmd.Context()); err != nil {
				return err
			}
			return set.apply(cmd.Context(), repository.New(st), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "data", "Directory holding the JSON exports")
	cmd.Flags().StringVar(&lockPath, "lock", defaultLockPath(), "Lock file guarding concurrent runs")
	return cmd
}
