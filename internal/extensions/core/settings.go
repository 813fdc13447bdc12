package core

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/modshell/internal/infrastructure/config"
	"github.com/GriffinCanCode/modshell/internal/shared/types"
)

// Settings is the narrow settings surface built-in parts consume.
// Persistence is the UI layer's concern.
type Settings interface {
	GameDir() string
	SetGameDir(dir string) error
	DataDir() string
}

func init() {
	types.RegisterContract[Settings]("core.settings")
	types.RegisterContract[*Journal]("core.journal")
}

type settings struct {
	mu      sync.RWMutex
	gameDir string
	dataDir string
}

func newSettings(r types.Resolver) (any, error) {
	cfg, err := types.One[*config.Config](r)
	if err != nil {
		return nil, err
	}
	return &settings{gameDir: cfg.Shell.GameDir, dataDir: cfg.Shell.DataDir}, nil
}

func (s *settings) GameDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gameDir
}

// SetGameDir sets the game directory; it must be an existing directory
func (s *settings) SetGameDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid game directory %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("invalid game directory %q: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("invalid game directory %q: not a directory", dir)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameDir = abs
	return nil
}

func (s *settings) DataDir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataDir
}

// dataDir makes sure the data directory exists before extensions load
type dataDir struct {
	path string
}

func newDataDir(r types.Resolver) (any, error) {
	s, err := types.One[Settings](r)
	if err != nil {
		return nil, err
	}
	path := s.DataDir()
	if path == "" {
		return nil, fmt.Errorf("data directory is not configured")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &dataDir{path: path}, nil
}
