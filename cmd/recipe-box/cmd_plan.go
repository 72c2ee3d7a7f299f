package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"recipe-box/internal/planner"
)

func newPlanCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage the meal plan",
	}

	var day string
	add := &cobra.Command{
		Use:   "add <recipe>",
		Short: "Add a recipe to the plan and its ingredients to the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.app.Planner()
			if err := p.RecipeAdded(cmd.Context(), args[0], day); err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), p.State().Entries)
			return nil
		},
	}
	add.Flags().StringVar(&day, "day", "", "Day to cook it, e.g. Monday")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <recipe>",
		Short: "Remove a recipe from the plan and its ingredients from the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.app.Planner()
			if err := p.RecipeRemoved(cmd.Context(), args[0]); err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), p.State().Entries)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the plan; manual list items stay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.app.Planner()
			if err := p.ClearAll(cmd.Context()); err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), p.State().Entries)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.app.Planner()
			if err := p.Refresh(cmd.Context()); err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), p.State().Entries)
			return nil
		},
	})
	return cmd
}

func printPlan(w io.Writer, entries []planner.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Nothing planned yet.")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(w, "%d. %s", i+1, e.RecipeTitle)
		if e.Day != "" {
			fmt.Fprintf(w, " (%s)", e.Day)
		}
		fmt.Fprintln(w)
	}
}
