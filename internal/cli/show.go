package cli

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func newShowCmd(a *app) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "show <guid>",
		Short: "Show one stat descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store types.CatalogStore) error {
				cat, err := a.latestCatalog(store)
				if err != nil {
					return err
				}
				d, ok := cat.Lookup(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", types.ErrStatNotFound, args[0])
				}

				out := cmd.OutOrStdout()
				switch {
				case dump:
					cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
					cfg.Fdump(out, d)
					return nil
				case a.flags.jsonMode:
					return writeJSON(out, d)
				}
				fmt.Fprintf(out, "guid:        %s\n", d.GUID)
				fmt.Fprintf(out, "name:        %s\n", d.DisplayName)
				fmt.Fprintf(out, "category:    %s\n", d.Category)
				if d.Description != "" {
					fmt.Fprintf(out, "description: %s\n", d.Description)
				}
				fmt.Fprintf(out, "field:       %s\n", d.FieldName)
				fmt.Fprintf(out, "declared by: %s\n", d.DeclaringType.QualifiedName)
				fmt.Fprintf(out, "show in ui:  %t\n", d.ShowInUI)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the descriptor with go-spew")
	return cmd
}
