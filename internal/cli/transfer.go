package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/pkg/sqlite"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func newExportCmd(a *app) *cobra.Command {
	var scanID string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export a catalog snapshot to a JSONL file",
		Long:  "Export writes a catalog snapshot as JSON lines. A .zst suffix compresses the file with zstd.",
		Example: `  statcraft export catalog.jsonl
  statcraft export --scan 0190f5c2-... catalog.jsonl.zst`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(store types.CatalogStore) error {
				var (
					snap types.CatalogSnapshot
					err  error
				)
				if scanID != "" {
					snap, err = store.GetSnapshot(scanID)
				} else {
					snap, err = store.LatestSnapshot()
				}
				if errors.Is(err, types.ErrSnapshotNotFound) {
					if scanID != "" {
						return fmt.Errorf("%w: snapshot %s not found", errUser, scanID)
					}
					return errNoSnapshot
				}
				if err != nil {
					return fmt.Errorf("load snapshot: %w", err)
				}

				if err := sqlite.ExportSnapshot(args[0], snap); err != nil {
					return err
				}
				a.logger.Info("exported snapshot", "scan_id", snap.ScanID, "path", args[0], "count", snap.Count)
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d stats from %s to %s\n", snap.Count, snap.ScanID, args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&scanID, "scan", "", "snapshot to export (default: latest)")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a catalog snapshot from a JSONL file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := sqlite.ImportSnapshot(args[0])
			if err != nil {
				return fmt.Errorf("%w: %w", errUser, err)
			}
			return a.withStore(func(store types.CatalogStore) error {
				saved, err := store.SaveSnapshot(snap)
				if err != nil {
					return fmt.Errorf("save snapshot: %w", err)
				}
				a.logger.Info("imported snapshot", "scan_id", saved.ScanID, "path", args[0], "count", saved.Count)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d stats as %s\n", saved.Count, saved.ScanID)
				return nil
			})
		},
	}
}
