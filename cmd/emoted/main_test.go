package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// execute runs the root command with a config file that keeps logs and
// scripts inside a temp dir.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeWith(t, "", args...)
}

// executeWith is execute with extra YAML appended to the config file.
func executeWith(t *testing.T, extra string, args ...string) (string, string, error) {
	t.Helper()
	dir := t.TempDir()
	scripts := filepath.Join(dir, "scripts")
	if err := os.Mkdir(scripts, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scripts, "sig.lua"), []byte("-- sig\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := filepath.Join(dir, "config.yaml")
	content := "log:\n  file: " + filepath.Join(dir, "emoted.log") + "\nscripts:\n  paths:\n    - " + scripts + "\n" + extra
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "emoted dev\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestScriptsCommand(t *testing.T) {
	out, _, err := execute(t, "scripts")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out, "sig ") || !strings.Contains(out, "sig.lua") {
		t.Errorf("output = %q", out)
	}
}

func TestPluginsCommandLocalized(t *testing.T) {
	out, _, err := execute(t, "--locale", "de-DE", "plugins")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"Datum", "Suchen", "Emoji", "enabled"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}
}

func TestTooManyFiles(t *testing.T) {
	if _, _, err := execute(t, "a.txt", "b.txt"); err == nil {
		t.Error("Execute() with two files succeeded")
	}
}

func TestMissingConfigFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml"), "plugins"})
	if err := cmd.Execute(); err == nil {
		t.Error("Execute() with a missing config file succeeded")
	}
}

func TestKeymapCommand(t *testing.T) {
	extra := `keymap:
  - keys: alt+d
    action: delete
    at: line-start
    text: "#"
  - keys: ctrl+q
    action: insert
    text: x
`
	out, errOut, err := executeWith(t, extra, "keymap")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if want := "ALT+D --> delete \"#\" at start of line\n"; out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if !strings.Contains(errOut, "entry 2") {
		t.Errorf("stderr = %q, want the invalid entry", errOut)
	}
}

func TestKeymapCommandEmpty(t *testing.T) {
	out, _, err := execute(t, "keymap")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out != "No key bindings configured\n" {
		t.Errorf("output = %q", out)
	}
}
