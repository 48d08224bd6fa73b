// Package paths resolves the configuration, data and content directories
// used by the statcraft command.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "statcraft"

// CWD-relative directory names used when nothing else is configured.
const (
	DefaultDataDirName    = ".statcraft"
	DefaultContentDirName = "content"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir  = "STATCRAFT_CONFIG_DIR"
	EnvDataDir    = "STATCRAFT_DATA_DIR"
	EnvContentDir = "STATCRAFT_CONTENT_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/statcraft (fallback ~/.config/statcraft)
// macOS:   ~/Library/Application Support/statcraft
// Windows: %APPDATA%/statcraft
func DefaultConfigDir() (string, error) {
	return platformPath("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/statcraft (fallback ~/.local/share/statcraft)
// macOS and Windows share the configuration directory.
func DefaultDataDir() (string, error) {
	return platformPath("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformPath(xdgVar, homeRel string) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, homeRel, AppName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > STATCRAFT_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config value > STATCRAFT_DATA_DIR env > $(CWD)/.statcraft.
func ResolveDataDir(flag, configValue string) (string, error) {
	return resolve(flag, configValue, EnvDataDir, DefaultDataDirName)
}

// ResolveContentDir returns the content definition directory following the
// precedence chain: flag > config value > STATCRAFT_CONTENT_DIR env >
// $(CWD)/content.
func ResolveContentDir(flag, configValue string) (string, error) {
	return resolve(flag, configValue, EnvContentDir, DefaultContentDirName)
}

func resolve(flag, configValue, envVar, cwdName string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(envVar)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, cwdName), nil
}
