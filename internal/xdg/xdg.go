package xdg

import (
	"os"
	"path/filepath"
)

// Dirs resolves XDG base directories for one application.
type Dirs struct {
	app        string
	dataHome   string
	configHome string
	stateHome  string
	cacheHome  string
	configDirs []string
}

// New resolves the base directories of app from getenv, falling back to the
// defaults of the XDG Base Directory Specification.
func New(app string, getenv func(string) string) *Dirs {
	homeDir := getenv("HOME")
	if homeDir == "" {
		if h, err := os.UserHomeDir(); err == nil {
			homeDir = h
		} else {
			homeDir = os.TempDir()
		}
	}

	lookup := func(key string, def ...string) string {
		if v := getenv(key); v != "" && filepath.IsAbs(v) {
			return v
		}
		return filepath.Join(append([]string{homeDir}, def...)...)
	}

	d := &Dirs{
		app:        app,
		dataHome:   lookup("XDG_DATA_HOME", ".local", "share"),
		configHome: lookup("XDG_CONFIG_HOME", ".config"),
		stateHome:  lookup("XDG_STATE_HOME", ".local", "state"),
		cacheHome:  lookup("XDG_CACHE_HOME", ".cache"),
	}

	d.configDirs = []string{"/etc/xdg"}
	if v := getenv("XDG_CONFIG_DIRS"); v != "" {
		d.configDirs = filepath.SplitList(v)
	}
	return d
}

// ConfigDir is where the application's user configuration lives.
func (d *Dirs) ConfigDir() string { return filepath.Join(d.configHome, d.app) }

// DataDir holds user data such as results and algorithm units.
func (d *Dirs) DataDir() string { return filepath.Join(d.dataHome, d.app) }

// StateDir holds state that should persist between runs.
func (d *Dirs) StateDir() string { return filepath.Join(d.stateHome, d.app) }

// CacheDir holds data that can be downloaded again.
func (d *Dirs) CacheDir() string { return filepath.Join(d.cacheHome, d.app) }

// FindConfig returns the first existing file called name in the user config
// directory or the system config directories.
func (d *Dirs) FindConfig(name string) (string, bool) {
	candidates := []string{filepath.Join(d.ConfigDir(), name)}
	for _, dir := range d.configDirs {
		candidates = append(candidates, filepath.Join(dir, d.app, name))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			return p, true
		}
	}
	return "", false
}

// EnsureDir creates the directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
