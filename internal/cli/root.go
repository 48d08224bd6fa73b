// Package cli implements the statcraft command-line interface: catalog
// scanning and persistence, content validation, and modifier simulation.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/statcraft/internal/paths"
	"github.com/mesh-intelligence/statcraft/pkg/types"
)

// Version is the statcraft release, overridable with -ldflags.
var Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/statcraft"

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// errUser marks failures caused by the invocation rather than the system.
var errUser = errors.New("invalid invocation")

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir  string
	dataDir    string
	contentDir string
	jsonMode   bool
	logLevel   string
	logFormat  string
}

// app is the state shared by the commands of one root command.
type app struct {
	flags  rootFlags
	config types.Config
	logger *slog.Logger
}

// NewRootCmd creates the top-level "statcraft" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.Default()}

	root := &cobra.Command{
		Use:   "statcraft",
		Short: "Discover, persist and simulate game stats",
		Long: `Statcraft catalogs the stat fields declared in Go game code, stores catalog
snapshots, validates item and ability content, and simulates how modifiers
compose into final stat values.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/"+paths.DefaultDataDirName+")")
	pf.StringVar(&a.flags.contentDir, "content-dir", "", "content definition directory (default: $(CWD)/"+paths.DefaultContentDirName+")")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "text", "log format: text or json")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newScanCmd(a),
		newListCmd(a),
		newCategoriesCmd(a),
		newShowCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newValidateCmd(a),
		newSimulateCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes root with args and maps the error to an exit code.
func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "statcraft:", err)
	if errors.Is(err, errUser) || errors.Is(err, types.ErrStatNotFound) ||
		errors.Is(err, types.ErrDefinitionNotFound) || errors.Is(err, types.ErrDefinitionInvalid) {
		return exitUserError
	}
	return exitSysError
}

// setup loads configuration and builds the logger for a command.
func (a *app) setup(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}

	if a.flags.logLevel != "" {
		cfg.LogLevel = a.flags.logLevel
	}
	if cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir); err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if cfg.ContentDir, err = paths.ResolveContentDir(a.flags.contentDir, cfg.ContentDir); err != nil {
		return fmt.Errorf("resolve content dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: config: %w", errUser, err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, a.flags.logFormat)
	if err != nil {
		return err
	}
	a.config = cfg
	a.logger = logger
	return nil
}
