package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/statcraft/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "STATCRAFT"

	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyContentDir = "content_dir"
	cfgKeyLogLevel   = "log_level"
	cfgKeyFrameworks = "framework_prefixes"
)

// configFile holds the structure written to config.yaml.
type configFile struct {
	Backend           string   `yaml:"backend"`
	DataDir           string   `yaml:"data_dir,omitempty"`
	ContentDir        string   `yaml:"content_dir,omitempty"`
	LogLevel          string   `yaml:"log_level,omitempty"`
	FrameworkPrefixes []string `yaml:"framework_prefixes,omitempty"`
}

// loadConfig reads config.yaml from configDir with Viper. Values may be
// overridden by STATCRAFT_* environment variables. A missing config.yaml is
// not an error.
func loadConfig(configDir string) (types.Config, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyFrameworks, types.DefaultFrameworkPrefixes)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	for _, key := range []string{cfgKeyBackend, cfgKeyLogLevel} {
		if err := v.BindEnv(key); err != nil {
			return types.Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return types.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	return types.Config{
		Backend:           v.GetString(cfgKeyBackend),
		DataDir:           v.GetString(cfgKeyDataDir),
		ContentDir:        v.GetString(cfgKeyContentDir),
		LogLevel:          v.GetString(cfgKeyLogLevel),
		FrameworkPrefixes: v.GetStringSlice(cfgKeyFrameworks),
	}, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. It reports whether a file was written.
func writeConfigIfMissing(configDir string, cfg configFile) (bool, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return false, fmt.Errorf("create config directory: %w", err)
	}
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# statcraft configuration\n")
	return true, os.WriteFile(path, append(header, data...), 0o644)
}
