package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// AppName is the directory name used under the user config and cache dirs
const AppName = "modshell"

// File and directory names inside the layout
const (
	ExtensionsDirName = "extensions"
	DataDirName       = "data"
	CacheFileName     = "composition.bin"
)

// Layout is the resolved set of directories the shell uses
type Layout struct {
	ConfigRoot string
	CacheRoot  string
}

// Default resolves the layout from the user's config and cache directories
func Default() (Layout, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve user cache dir: %w", err)
	}
	return Layout{
		ConfigRoot: filepath.Join(configDir, AppName),
		CacheRoot:  filepath.Join(cacheDir, AppName),
	}, nil
}

// Under returns a layout rooted entirely at dir (tests, portable installs)
func Under(dir string) Layout {
	return Layout{
		ConfigRoot: dir,
		CacheRoot:  filepath.Join(dir, "cache"),
	}
}

// ExtensionsDir returns the directory scanned for extension modules
func (l Layout) ExtensionsDir() string {
	return filepath.Join(l.ConfigRoot, ExtensionsDirName)
}

// DataDir returns the directory for shell data files
func (l Layout) DataDir() string {
	return filepath.Join(l.ConfigRoot, DataDirName)
}

// CacheFile returns the composition cache file path
func (l Layout) CacheFile() string {
	return filepath.Join(l.CacheRoot, CacheFileName)
}

// StandardDirectories returns all directories that should exist
func (l Layout) StandardDirectories() []string {
	return []string{
		l.ExtensionsDir(),
		l.DataDir(),
		l.CacheRoot,
	}
}

// EnsureDirectories creates every standard directory
func (l Layout) EnsureDirectories() error {
	for _, dir := range l.StandardDirectories() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
