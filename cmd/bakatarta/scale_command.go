package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/bakatarta/internal/domain"
	"github.com/Clark-Hu/bakatarta/internal/repository"
	"github.com/Clark-Hu/bakatarta/internal/scaling"
)

func newScaleCommand(ctx *commandContext) *cobra.Command {
	var servings int

	cmd := &cobra.Command{
		Use:   "scale <slug>",
		Short: "Print a recipe's ingredients scaled to a number of servings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			recipe, err := repository.New(st).Recipes.GetBySlug(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load recipe %q: %w", args[0], err)
			}

			state := scaling.NewServingState(recipe.Servings)
			if cmd.Flags().Changed("servings") {
				state.Set(servings)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderScaled(recipe, state))
			return nil
		},
	}
	cmd.Flags().IntVarP(&servings, "servings", "s", 0, "Target servings (defaults to the recipe's own)")
	return cmd
}

// renderScaled prints the heading line and the scaled ingredient table.
// Section headers span the product column with an empty amount.
func renderScaled(recipe domain.Recipe, state scaling.ServingState) string {
	rows := make([][]string, 0, len(recipe.Ingredients))
	for _, ing := range state.Apply(recipe.Ingredients) {
		if ing.IsSectionHeader() {
			rows = append(rows, []string{"", "", strings.ToUpper(ing.Product)})
			continue
		}
		rows = append(rows, []string{ing.Amount, ing.Unit, ing.Product})
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d of %d servings)\n", recipe.Name, state.Current, state.Base)
	b.WriteString(renderTable([]string{"Amount", "Unit", "Product"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
	b.WriteString("\n")
	return b.String()
}
