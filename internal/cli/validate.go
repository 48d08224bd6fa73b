package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/pkg/content"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [content-dir]",
		Short: "Validate item and ability definitions",
		Long: `Validate loads every YAML definition under the content directory, checks it
against the definition schema, and reports modifiers whose stat is not in the
latest catalog snapshot.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.config.ContentDir
			if len(args) == 1 {
				dir = args[0]
			}
			lib, err := content.LoadDir(dir)
			if err != nil {
				return err
			}

			var (
				problems []content.Problem
				checked  bool
			)
			err = a.withStore(func(store types.CatalogStore) error {
				cat, err := a.latestCatalog(store)
				if errors.Is(err, errNoSnapshot) {
					a.logger.Warn("no catalog snapshot; stat references not checked")
					return nil
				}
				if err != nil {
					return err
				}
				problems = lib.Check(cat)
				checked = true
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				if problems == nil {
					problems = []content.Problem{}
				}
				if err := writeJSON(out, map[string]any{
					"dir":         dir,
					"definitions": lib.Len(),
					"digest":      lib.Digest(),
					"checked":     checked,
					"problems":    problems,
				}); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "%d definitions in %s (digest %s)\n", lib.Len(), dir, lib.Digest())
				for _, p := range problems {
					fmt.Fprintf(out, "  %s: %s\n", p.File, p)
				}
			}
			if len(problems) > 0 {
				return fmt.Errorf("%w: %d modifiers reference unknown stats", types.ErrDefinitionInvalid, len(problems))
			}
			return nil
		},
	}
}
