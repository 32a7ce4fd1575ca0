package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config file locations.
const (
	// GlobalConfigDir is the directory under $XDG_CONFIG_HOME (or ~/.config).
	GlobalConfigDir = "cclsmon"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// ProjectConfigDir is the per-project directory under the project root.
	ProjectConfigDir = ".cclsmon"
	// ProjectConfigFile is the per-project config file name.
	ProjectConfigFile = "config.yaml"
)

// EnvPrefix prefixes environment overrides of config keys,
// e.g. CCLSMON_STATUS_UPDATE_INTERVAL=2s.
const EnvPrefix = "CCLSMON"

// ConfigKey is the viper key holding an explicit config file path
// (--config or CCLSMON_CONFIG).
const ConfigKey = "config"

// Loader reads the configuration of one project. Every Load starts again
// from the defaults, so a key removed from a file is gone after a reload.
type Loader struct {
	v    *viper.Viper
	root string
}

// NewLoader creates a loader for the project rooted at root. v supplies the
// explicit config file path and may be nil. An empty root means the working
// directory.
func NewLoader(v *viper.Viper, root string) *Loader {
	return &Loader{v: v, root: root}
}

// ProjectFile returns the path of the project config file, whether or not
// it exists.
func (l *Loader) ProjectFile() string {
	return filepath.Join(l.root, ProjectConfigDir, ProjectConfigFile)
}

func (l *Loader) explicitFile() string {
	if l.v == nil {
		return ""
	}
	return l.v.GetString(ConfigKey)
}

// Files returns the config files Load reads, in load order. Only files that
// currently exist are included.
func (l *Loader) Files() []string {
	var files []string
	for _, path := range []string{globalConfigPath(), l.ProjectFile(), l.explicitFile()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files
}

// Load builds the configuration. Precedence, later wins:
//  1. Default() values
//  2. ~/.config/cclsmon/config.yaml
//  3. <root>/.cclsmon/config.yaml
//  4. the explicit config file, which must exist
//  5. CCLSMON_* environment variables
//
// Command-line flags are applied by the caller, see Store.SetOverrides.
func (l *Loader) Load() (*Config, error) {
	if explicit := l.explicitFile(); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	defaults, err := structToMap(cfg)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(defaults); err != nil {
		return nil, err
	}

	for _, path := range l.Files() {
		if err := mergeFile(v, path); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg, viperDecodeHook()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// globalConfigPath returns the global config path. It may not exist.
func globalConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, GlobalConfigDir, GlobalConfigFile)
}

func mergeFile(v *viper.Viper, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	return v.MergeConfig(file)
}

// viperDecodeHook parses durations and comma-separated lists from strings.
func viperDecodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// structToMap flattens cfg into the nested map form viper merges, with
// durations as strings so they read back like file values.
func structToMap(cfg *Config) (map[string]any, error) {
	result := make(map[string]any)

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "mapstructure",
		Result:     &result,
		DecodeHook: durationToStringHook(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(cfg); err != nil {
		return nil, err
	}
	return result, nil
}

func durationToStringHook() mapstructure.DecodeHookFunc {
	return func(from, to reflect.Type, data any) (any, error) {
		if from != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		return data.(time.Duration).String(), nil
	}
}
