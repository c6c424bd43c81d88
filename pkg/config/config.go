// Package config persists the runtime provider/model/key selection and
// resolves the credential in use for a request.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Lothnic/Ruty/pkg/provider"
)

// Config is the persisted runtime selection.
type Config struct {
	Provider       string            `json:"provider"`
	Model          string            `json:"model,omitempty"`
	APIKeys        map[string]string `json:"api_keys"`
	SupermemoryKey string            `json:"supermemory_key,omitempty"`
	Theme          string            `json:"theme"`
	Hotkey         string            `json:"hotkey"`
}

// Overrides carries per-request credentials. It is threaded explicitly from
// the request boundary down to the calls it covers and is never stored, so
// concurrent requests cannot observe each other's keys.
type Overrides struct {
	APIKeys        map[string]string
	SupermemoryKey string
}

// Default returns the out-of-the-box configuration.
func Default() Config {
	return Config{
		Provider: provider.DefaultID,
		APIKeys:  map[string]string{},
		Theme:    "dark",
		Hotkey:   "Super+Space",
	}
}

// DefaultPath is ~/.config/ruty/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ruty", "config.json"), nil
}

// CurrentProvider returns the catalog entry for the configured provider.
func (c Config) CurrentProvider() provider.Config {
	return provider.Get(c.Provider)
}

// CurrentModel resolves the model in use: explicit override, else the
// provider default.
func (c Config) CurrentModel() string {
	if c.Model != "" {
		return c.Model
	}
	return c.CurrentProvider().DefaultModel
}

// ResolveKey resolves the credential for a provider in priority order:
// per-request override, stored key, environment, absent.
func (c Config) ResolveKey(providerID string, ov Overrides) string {
	if key := strings.TrimSpace(ov.APIKeys[providerID]); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.APIKeys[providerID]); key != "" {
		return key
	}
	if env := provider.Get(providerID).APIKeyEnv; env != "" {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// ResolveMemoryKey resolves the remote memory store credential with the same
// priority order.
func (c Config) ResolveMemoryKey(ov Overrides) string {
	if key := strings.TrimSpace(ov.SupermemoryKey); key != "" {
		return key
	}
	if key := strings.TrimSpace(c.SupermemoryKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("SUPERMEMORY_API_KEY"))
}

// Store owns the persisted configuration for one process. It loads lazily on
// first use and serializes mutation.
type Store struct {
	mu     sync.Mutex
	path   string
	loaded bool
	cfg    Config
}

// NewStore creates a store persisting at path. An empty path uses DefaultPath.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get returns a snapshot of the current configuration, loading it from disk
// once. The snapshot shares no state with the store; later updates do not
// touch it.
func (s *Store) Get() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	return s.cfg.clone()
}

// Update applies a mutation, persists the result and returns a snapshot of
// it. Callers holding a cached model client must rebuild it afterwards.
func (s *Store) Update(apply func(*Config)) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked()
	apply(&s.cfg)
	if s.cfg.APIKeys == nil {
		s.cfg.APIKeys = map[string]string{}
	}
	if err := s.saveLocked(); err != nil {
		return s.cfg.clone(), err
	}
	return s.cfg.clone(), nil
}

// clone deep-copies the key map so snapshots cannot race with mutation.
func (c Config) clone() Config {
	out := c
	out.APIKeys = make(map[string]string, len(c.APIKeys))
	for id, key := range c.APIKeys {
		out.APIKeys[id] = key
	}
	return out
}

func (s *Store) loadLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	s.cfg = Default()

	if s.path == "" {
		path, err := DefaultPath()
		if err != nil {
			slog.Warn("config path unavailable, using defaults", "error", err)
			return
		}
		s.path = path
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return
	}
	if err != nil {
		slog.Warn("failed to read config, using defaults", "path", s.path, "error", err)
		return
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.Warn("malformed config, using defaults", "path", s.path, "error", err)
		return
	}
	if cfg.APIKeys == nil {
		cfg.APIKeys = map[string]string{}
	}
	s.cfg = cfg
}

func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(s.cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
