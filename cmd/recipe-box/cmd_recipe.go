package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRecipeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipe",
		Short: "Manage the recipe library",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Load recipe files from RECIPE_DIR into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.SyncRecipes(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Synced %d recipes (%d unchanged, %d failed).\n", res.Saved, res.Unchanged, len(res.Failed))
			for _, err := range res.Failed {
				fmt.Fprintf(out, "  ! %v\n", err)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clip <url>",
		Short: "Import a recipe from a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := c.app.ClipRecipe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q as %s with %d ingredients.\n", rec.Title, rec.ID, len(rec.Ingredients))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored recipes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recipes, err := c.app.Recipes().List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tINGREDIENTS")
			for _, rec := range recipes {
				fmt.Fprintf(w, "%s\t%s\t%d\n", rec.ID, rec.Title, len(rec.Ingredients))
			}
			return w.Flush()
		},
	})
	return cmd
}
