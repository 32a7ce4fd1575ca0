package config

import "sync"

// Store holds the current configuration and reloads it on request.
// It is the configuration source read by the target resolver on every poll.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	load func() (*Config, error)

	// Fields set from flags are re-applied after every reload.
	overrides func(*Config)
}

// NewStore creates a Store seeded with cfg. load is called by Reload,
// usually Loader.Load.
func NewStore(cfg *Config, load func() (*Config, error)) *Store {
	return &Store{cfg: cfg, load: load}
}

// SetOverrides registers a function applied to every reloaded config.
func (s *Store) SetOverrides(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = fn
}

// Get returns the current configuration.
func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload loads and validates configuration, keeping the previous value on error.
func (s *Store) Reload() error {
	if s.load == nil {
		return nil
	}

	cfg, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overrides != nil {
		s.overrides(cfg)
	}
	if err := Validate(cfg); err != nil {
		return err
	}
	s.cfg = cfg
	return nil
}

// CompilationDatabaseDirectory returns ccls.misc.compilationDatabaseDirectory.
func (s *Store) CompilationDatabaseDirectory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return ""
	}
	return s.cfg.CCLS.Misc.CompilationDatabaseDirectory
}
