package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScriptExt is the only extension accepted for scripts.
const ScriptExt = ".lua"

// Script is a Lua script read from disk.
type Script struct {
	// Name is the file name without extension.
	Name string

	// Path is the absolute path of the file.
	Path string

	// Source is the file content at the time it was read.
	Source string
}

// ReadScript reads the script at path. Files without the .lua extension
// are rejected with ErrInvalidScript.
func ReadScript(path string) (*Script, error) {
	if !IsScriptPath(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrInvalidScript)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	return &Script{
		Name:   strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Path:   abs,
		Source: string(data),
	}, nil
}

// IsScriptPath reports whether path names a Lua script.
func IsScriptPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ScriptExt)
}

// Loader discovers scripts in a list of directories.
type Loader struct {
	// Search paths (checked in order)
	paths []string

	// Files that could not be read during the last Discover
	errors map[string]error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the script search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new script loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:  DefaultScriptPaths(),
		errors: make(map[string]error),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// DefaultScriptPaths returns the default script search paths.
func DefaultScriptPaths() []string {
	paths := make([]string, 0, 2)

	// User scripts: ~/.config/emoted/scripts/
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "emoted", "scripts"))
	}

	// Project scripts: .emoted/scripts/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".emoted", "scripts"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover reads every script in the search paths, sorted by name.
// When two directories hold a script of the same name, the earlier path wins.
// Missing directories are skipped.
func (l *Loader) Discover() ([]*Script, error) {
	l.errors = make(map[string]error)
	found := make(map[string]*Script)

	for _, dir := range l.paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() || !IsScriptPath(entry.Name()) {
				continue
			}
			name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
			if _, exists := found[name]; exists {
				continue
			}

			s, err := ReadScript(filepath.Join(dir, entry.Name()))
			if err != nil {
				l.errors[filepath.Join(dir, entry.Name())] = err
				continue
			}
			found[name] = s
		}
	}

	scripts := make([]*Script, 0, len(found))
	for _, s := range found {
		scripts = append(scripts, s)
	}
	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})
	return scripts, nil
}

// Errors returns the read failures from the last Discover, keyed by path.
func (l *Loader) Errors() map[string]error {
	out := make(map[string]error, len(l.errors))
	for k, v := range l.errors {
		out[k] = v
	}
	return out
}
