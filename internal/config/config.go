// Package config provides configuration types and defaults for cclsmon.
package config

import "time"

// Config holds all configuration for cclsmon.
type Config struct {
	CCLS        CCLSConfig        `yaml:"ccls" mapstructure:"ccls"`
	Status      StatusConfig      `yaml:"status" mapstructure:"status"`
	Paths       PathsConfig       `yaml:"paths" mapstructure:"paths"`
	LogRotation LogRotationConfig `yaml:"log_rotation" mapstructure:"log_rotation"`
	Watch       WatchConfig       `yaml:"watch" mapstructure:"watch"`
}

// CCLSConfig holds settings for launching and talking to ccls.
// Key names under misc mirror the editor extension settings.
type CCLSConfig struct {
	Command        string         `yaml:"command" mapstructure:"command"`
	Args           []string       `yaml:"args" mapstructure:"args"`
	InitOptions    map[string]any `yaml:"init_options" mapstructure:"init_options"`       // Extra initializationOptions sent to ccls
	RequestTimeout time.Duration  `yaml:"request_timeout" mapstructure:"request_timeout"` // Per-request transport timeout (0 = none)
	Misc           MiscConfig     `yaml:"misc" mapstructure:"misc"`
}

// MiscConfig holds the ccls.misc.* settings.
type MiscConfig struct {
	CompilationDatabaseDirectory string `yaml:"compilationDatabaseDirectory" mapstructure:"compilationDatabaseDirectory"`
}

// StatusConfig holds status polling settings.
type StatusConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval" mapstructure:"update_interval"`
	Immediate      bool          `yaml:"immediate" mapstructure:"immediate"` // Poll once at startup instead of after the first interval
}

// PathsConfig holds file paths for logs, socket and pid file.
type PathsConfig struct {
	Log    string `yaml:"log" mapstructure:"log"`
	Socket string `yaml:"socket" mapstructure:"socket"`
	PID    string `yaml:"pid" mapstructure:"pid"`
}

// LogRotationConfig holds settings for log file rotation.
type LogRotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool `yaml:"compress" mapstructure:"compress"`
}

// WatchConfig holds settings for refreshing on filesystem changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled" mapstructure:"enabled"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"` // Minimum spacing between triggered refreshes
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		CCLS: CCLSConfig{
			Command:        "ccls",
			Args:           []string{},
			InitOptions:    map[string]any{},
			RequestTimeout: 0,
		},
		Status: StatusConfig{
			UpdateInterval: time.Second,
			Immediate:      false,
		},
		Paths: PathsConfig{
			Log:    ".cclsmon/cclsmon.log",
			Socket: ".cclsmon/cclsmon.sock",
			PID:    ".cclsmon/cclsmon.pid",
		},
		LogRotation: LogRotationConfig{
			MaxSizeMB:  20,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
	}
}
