package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/internal/paths"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize statcraft configuration and storage",
		Long:  "Create the configuration and data directories, write a default config.yaml, and create the catalog database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			written, err := writeConfigIfMissing(configDir, configFile{
				Backend:    types.BackendSQLite,
				DataDir:    a.config.DataDir,
				ContentDir: a.config.ContentDir,
			})
			if err != nil {
				return err
			}

			if err := a.withStore(func(types.CatalogStore) error { return nil }); err != nil {
				return fmt.Errorf("initialize storage: %w", err)
			}
			a.logger.Info("initialized", "config_dir", configDir, "data_dir", a.config.DataDir, "config_written", written)

			out := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return writeJSON(out, map[string]any{
					"config_dir":     configDir,
					"data_dir":       a.config.DataDir,
					"content_dir":    a.config.ContentDir,
					"config_written": written,
				})
			}
			fmt.Fprintln(out, "statcraft initialized")
			fmt.Fprintln(out, "  config: ", configDir)
			fmt.Fprintln(out, "  data:   ", a.config.DataDir)
			fmt.Fprintln(out, "  content:", a.config.ContentDir)
			return nil
		},
	}
}
