package config

import (
	"errors"
	"fmt"
)

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if cfg.Status.UpdateInterval <= 0 {
		return fmt.Errorf("status.update_interval must be positive, got %v", cfg.Status.UpdateInterval)
	}

	if cfg.CCLS.Command == "" {
		return errors.New("ccls.command must not be empty")
	}

	if cfg.CCLS.RequestTimeout < 0 {
		return fmt.Errorf("ccls.request_timeout must not be negative, got %v", cfg.CCLS.RequestTimeout)
	}

	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %v", cfg.Watch.Debounce)
	}

	if cfg.Paths.Socket == "" {
		return errors.New("paths.socket must not be empty")
	}

	return nil
}
