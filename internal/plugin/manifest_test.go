package plugin

import (
	"errors"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		wantErr  bool
	}{
		{"minimal", Manifest{Name: "smile"}, false},
		{"full", Manifest{Name: "smile-2", Version: "1.2.3", Author: "me"}, false},
		{"prerelease", Manifest{Name: "s", Version: "0.1.0-beta.1"}, false},
		{"short version", Manifest{Name: "s", Version: "2"}, false},
		{"empty name", Manifest{}, true},
		{"leading digit", Manifest{Name: "1smile"}, true},
		{"space", Manifest{Name: "my script"}, true},
		{"bad version", Manifest{Name: "s", Version: "v1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidManifest) {
				t.Errorf("Validate() error = %v, want ErrInvalidManifest", err)
			}
		})
	}
}

func TestManifestFromLua(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(`manifest = { name = "signer", version = "1.0.0", description = "Signs" }`); err != nil {
		t.Fatal(err)
	}

	m, err := manifestFromLua(L, "fallback")
	if err != nil {
		t.Fatalf("manifestFromLua() error = %v", err)
	}
	if m.Name != "signer" || m.Version != "1.0.0" || m.Description != "Signs" {
		t.Errorf("manifest = %+v", m)
	}
}

func TestManifestFromLuaFallback(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	m, err := manifestFromLua(L, "fallback")
	if err != nil {
		t.Fatalf("manifestFromLua() error = %v", err)
	}
	if m.Name != "fallback" {
		t.Errorf("Name = %q, want fallback", m.Name)
	}
}

func TestManifestFromLuaInvalid(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(`manifest = { name = "has space" }`); err != nil {
		t.Fatal(err)
	}
	if _, err := manifestFromLua(L, "fallback"); !errors.Is(err, ErrInvalidManifest) {
		t.Errorf("manifestFromLua() error = %v, want ErrInvalidManifest", err)
	}
}
