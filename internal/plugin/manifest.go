package plugin

import (
	"fmt"
	"regexp"

	plua "github.com/dshills/emoted/internal/plugin/lua"
	lua "github.com/yuin/gopher-lua"
)

// ManifestGlobal is the global a script may set to describe itself:
//
//	manifest = {
//	  name = "signature",
//	  version = "1.0.0",
//	  description = "Adds a Sign button",
//	}
const ManifestGlobal = "manifest"

// Manifest describes a script's metadata.
type Manifest struct {
	Name        string
	Version     string
	Description string
	Author      string
}

// namePattern validates manifest names.
var namePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// versionPattern validates loose semver versions.
var versionPattern = regexp.MustCompile(`^\d+(\.\d+){0,2}([-+][0-9A-Za-z.-]+)?$`)

// Validate checks the manifest for errors.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidManifest)
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: name %q must start with a letter and contain only letters, digits, '-' and '_'",
			ErrInvalidManifest, m.Name)
	}
	if m.Version != "" && !versionPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: version %q is not a version number", ErrInvalidManifest, m.Version)
	}
	return nil
}

// manifestFromLua reads the manifest table from L. A script without one
// gets a manifest named after its file.
func manifestFromLua(L *lua.LState, fallback string) (*Manifest, error) {
	m := &Manifest{Name: fallback}

	tbl, ok := L.GetGlobal(ManifestGlobal).(*lua.LTable)
	if !ok {
		return m, nil
	}

	b := plua.NewBridge(L)
	if s, ok := b.TableString(tbl, "name"); ok {
		m.Name = s
	}
	m.Version, _ = b.TableString(tbl, "version")
	m.Description, _ = b.TableString(tbl, "description")
	m.Author, _ = b.TableString(tbl, "author")

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
