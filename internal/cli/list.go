package cli

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func newListCmd(a *app) *cobra.Command {
	var category string
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stats of the latest catalog snapshot",
		Example: `  statcraft list
  statcraft list --category combat
  statcraft list --all --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store types.CatalogStore) error {
				cat, err := a.latestCatalog(store)
				if err != nil {
					return err
				}

				var descs []types.StatDescriptor
				if category != "" {
					descs = slices.Collect(cat.ByCategory(category))
				} else {
					descs = cat.Descriptors()
				}
				if !all {
					descs = slices.DeleteFunc(descs, func(d types.StatDescriptor) bool { return !d.ShowInUI })
				}

				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					if descs == nil {
						descs = []types.StatDescriptor{}
					}
					return writeJSON(out, descs)
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "GUID\tNAME\tCATEGORY")
				for _, d := range descs {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.GUID, d.DisplayName, d.Category)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only stats in this category (case-insensitive)")
	cmd.Flags().BoolVar(&all, "all", false, "include stats hidden from the UI")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the stat categories of the latest catalog snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store types.CatalogStore) error {
				cat, err := a.latestCatalog(store)
				if err != nil {
					return err
				}
				cats := cat.Categories()
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					if cats == nil {
						cats = []string{}
					}
					return writeJSON(out, cats)
				}
				for _, c := range cats {
					fmt.Fprintln(out, c)
				}
				return nil
			})
		},
	}
}
