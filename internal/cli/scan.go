package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/internal/source"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func newScanCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "scan [patterns...]",
		Short: "Discover stat fields in Go packages and store a catalog snapshot",
		Long: `Scan loads the Go packages matching the patterns (default ./...), finds every
exported numeric struct field carrying a stat tag, and stores the result as a
new catalog snapshot.`,
		Example: `  statcraft scan
  statcraft scan --dir ../game ./actors/... ./items/...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"./..."}
			}
			scanner := source.NewScanner(
				source.WithDir(dir),
				source.WithLogger(a.logger),
				source.WithFrameworkPrefixes(a.config.FrameworkPrefixes...),
			)
			res, err := scanner.Scan(args...)
			if err != nil {
				return err
			}

			var saved types.CatalogSnapshot
			err = a.withStore(func(store types.CatalogStore) error {
				prev, err := store.LatestSnapshot()
				if err == nil {
					res.Report.Added, res.Report.Removed = diffDescriptors(prev.Descriptors, res.Snapshot.Descriptors)
				}
				saved, err = store.SaveSnapshot(res.Snapshot)
				if err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return writeJSON(out, map[string]any{
					"scan_id": saved.ScanID,
					"count":   saved.Count,
					"report":  res.Report,
				})
			}
			r := res.Report
			fmt.Fprintf(out, "scan %s: %d stats (%d added, %d removed, %d duplicates, %d skipped)\n",
				saved.ScanID, saved.Count, r.Added, r.Removed, r.Duplicates, r.Skipped)
			for _, pkg := range r.SkippedModules {
				fmt.Fprintln(out, "  skipped package:", pkg)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory the patterns are resolved in (default: current directory)")
	return cmd
}

// diffDescriptors counts the GUIDs of next missing from prev and the GUIDs of
// prev missing from next.
func diffDescriptors(prev, next []types.StatDescriptor) (added, removed int) {
	before := make(map[string]bool, len(prev))
	for _, d := range prev {
		before[d.GUID] = true
	}
	for _, d := range next {
		if before[d.GUID] {
			delete(before, d.GUID)
			continue
		}
		added++
	}
	return added, len(before)
}
