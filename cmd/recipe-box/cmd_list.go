package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"recipe-box/internal/export"
	"recipe-box/internal/ingredient"
	"recipe-box/internal/planner"
	"recipe-box/internal/shopping"
)

func newListCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Manage the shopping list",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the shopping list by store section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.app.Planner()
			if err := p.Refresh(cmd.Context()); err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(p.Sections())
			}
			printList(cmd.OutOrStdout(), p)
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "Print the sections as JSON")
	cmd.AddCommand(show)

	cmd.AddCommand(&cobra.Command{
		Use:   "add <item>",
		Short: `Add an item by hand, e.g. "2 packs paper towels"`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ing, err := ingredient.ParseLine(strings.Join(args, " "))
			if err != nil {
				return err
			}
			p := c.app.Planner()
			if err := p.AddManualItem(cmd.Context(), ing.Name, ing.Quantity, ing.Unit); err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), p)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <n|id>",
		Short: "Check or uncheck an item by its number in 'list show' or its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.app.Planner()
			id, err := resolveItem(cmd, p, args[0])
			if err != nil {
				return err
			}
			if err := p.ToggleItem(cmd.Context(), id); err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), p)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <n|id>",
		Short: "Delete a manually added item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := c.app.Planner()
			id, err := resolveItem(cmd, p, args[0])
			if err != nil {
				return err
			}
			if err := p.DeleteItem(cmd.Context(), id); err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), p)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear-checked",
		Short: "Remove every checked item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.app.Planner()
			if err := p.ClearChecked(cmd.Context()); err != nil {
				return err
			}
			printList(cmd.OutOrStdout(), p)
			return nil
		},
	})

	var format, output string
	exp := &cobra.Command{
		Use:   "export",
		Short: "Export the shopping list as xlsx or csv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := c.app.Planner()
			if err := p.Refresh(cmd.Context()); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			switch format {
			case "xlsx":
				return export.WriteXLSX(w, p.Sections())
			case "csv":
				return export.WriteCSV(w, p.Sections())
			default:
				return fmt.Errorf("unknown export format %q", format)
			}
		},
	}
	exp.Flags().StringVar(&format, "format", "csv", "Export format: xlsx or csv")
	exp.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	cmd.AddCommand(exp)
	return cmd
}

// resolveItem maps a display number to an item id. Anything that is not a
// number in range is taken to be an id.
func resolveItem(cmd *cobra.Command, p *planner.Orchestrator, ref string) (string, error) {
	if err := p.Refresh(cmd.Context()); err != nil {
		return "", err
	}
	n, err := strconv.Atoi(ref)
	if err != nil {
		return ref, nil
	}
	items := displayOrder(p.Sections())
	if n < 1 || n > len(items) {
		return "", fmt.Errorf("item number must be between 1 and %d", len(items))
	}
	return items[n-1].ID, nil
}

func displayOrder(sections []shopping.Section) []shopping.Item {
	var items []shopping.Item
	for _, sec := range sections {
		items = append(items, sec.Items...)
	}
	return items
}

func printList(w io.Writer, p *planner.Orchestrator) {
	counts := p.Counts()
	fmt.Fprintf(w, "Shopping list (%d/%d checked)\n", counts.Checked, counts.Total)
	if counts.Total == 0 {
		fmt.Fprintln(w, "Nothing to buy yet.")
		return
	}
	n := 1
	for _, sec := range p.Sections() {
		fmt.Fprintf(w, "\n%s\n", sec.Category)
		for _, it := range sec.Items {
			box := "[ ]"
			if it.Checked {
				box = "[x]"
			}
			fmt.Fprintf(w, "%3d. %s %s", n, box, it.Name)
			if amount := formatAmount(it); amount != "" {
				fmt.Fprintf(w, " (%s)", amount)
			}
			if it.Source == shopping.SourceManual {
				fmt.Fprint(w, " *")
			}
			fmt.Fprintln(w)
			n++
		}
	}
}

func formatAmount(it shopping.Item) string {
	var parts []string
	if it.Quantity != nil {
		parts = append(parts, strconv.FormatFloat(*it.Quantity, 'f', -1, 64))
	}
	if it.Unit != "" {
		parts = append(parts, string(it.Unit))
	}
	return strings.Join(parts, " ")
}
