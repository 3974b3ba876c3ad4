package plugin

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/emoted/internal/editor"
	"github.com/dshills/emoted/internal/plugin/api"
	"golang.org/x/text/language"
)

// testPlugin registers one button and counts starts.
type testPlugin struct {
	label   string
	starts  int
	failErr error
}

func (p *testPlugin) Start(host api.API) error {
	p.starts++
	if p.failErr != nil {
		return p.failErr
	}
	return host.RegisterButton(p.label, func() {})
}

func (p *testPlugin) Name(locale language.Tag) string {
	if locale == language.German {
		return p.label + "-de"
	}
	return p.label
}

func newTestManager(t *testing.T, plugins map[string]*testPlugin) *Manager {
	t.Helper()
	m := NewManager()
	for name, p := range plugins {
		p := p
		if err := m.Register(name, func() api.Plugin { return p }); err != nil {
			t.Fatalf("Register(%q) error = %v", name, err)
		}
	}
	return m
}

func TestManagerRegisterDuplicate(t *testing.T) {
	m := newTestManager(t, map[string]*testPlugin{"a": {label: "A"}})
	if err := m.Register("a", func() api.Plugin { return &testPlugin{} }); err == nil {
		t.Error("Register() should reject a duplicate name")
	}
	if got := m.Available(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("Available() = %v, want [a]", got)
	}
}

func TestManagerLoad(t *testing.T) {
	a := &testPlugin{label: "A"}
	m := newTestManager(t, map[string]*testPlugin{"a": a})
	e := editor.New(nil)

	if _, err := m.Load(context.Background(), "a", e); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a.starts != 1 {
		t.Errorf("starts = %d, want 1", a.starts)
	}

	buttons := e.Buttons()
	if len(buttons) != 1 || buttons[0].Label != "A" {
		t.Fatalf("Buttons() = %+v, want [A]", buttons)
	}
	if buttons[0].Owner != "plugin:a" {
		t.Errorf("button owner = %q, want plugin:a", buttons[0].Owner)
	}

	if _, ok := m.Get("a"); !ok {
		t.Error("Get(a) should find the loaded plugin")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}
}

func TestManagerLoadTwice(t *testing.T) {
	a := &testPlugin{label: "A"}
	m := newTestManager(t, map[string]*testPlugin{"a": a})
	e := editor.New(nil)
	ctx := context.Background()

	if _, err := m.Load(ctx, "a", e); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err := m.Load(ctx, "a", e)
	if !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load() error = %v, want ErrAlreadyLoaded", err)
	}
	if a.starts != 1 {
		t.Errorf("starts = %d, want 1", a.starts)
	}
	if len(e.Buttons()) != 1 {
		t.Errorf("got %d buttons, want 1", len(e.Buttons()))
	}
}

func TestManagerLoadUnknown(t *testing.T) {
	m := NewManager()
	_, err := m.Load(context.Background(), "nope", editor.New(nil))
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Load() error = %v, want ErrPluginNotFound", err)
	}
}

func TestManagerLoadCancelled(t *testing.T) {
	m := newTestManager(t, map[string]*testPlugin{"a": {label: "A"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Load(ctx, "a", editor.New(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestManagerStartFailure(t *testing.T) {
	boom := errors.New("boom")
	m := newTestManager(t, map[string]*testPlugin{"bad": {failErr: boom}})

	var events []ManagerEvent
	m.Subscribe(func(ev ManagerEvent) { events = append(events, ev) })

	_, err := m.Load(context.Background(), "bad", editor.New(nil))
	if !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want boom", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count() = %d, want 0", m.Count())
	}
	if len(events) != 1 || events[0].Type != EventError {
		t.Errorf("events = %+v, want one error event", events)
	}
}

// halfPlugin registers a button and a function key, then fails.
type halfPlugin struct{}

func (halfPlugin) Start(host api.API) error {
	if err := host.RegisterButton("Half", func() {}); err != nil {
		return err
	}
	return host.RegisterOnFunctionKeyEvent(api.F3, func() {})
}

func (halfPlugin) Name(language.Tag) string { return "Half" }

func TestManagerStartFailureReleasesRegistrations(t *testing.T) {
	m := NewManager()
	if err := m.Register("half", func() api.Plugin { return halfPlugin{} }); err != nil {
		t.Fatal(err)
	}
	e := editor.New(nil)
	if err := e.RegisterOnFunctionKeyEvent(api.F3, func() {}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Load(context.Background(), "half", e); err == nil {
		t.Fatal("Load() succeeded with F3 already bound")
	}
	if got := m.Loaded(); len(got) != 0 {
		t.Errorf("Loaded() = %v, want none", got)
	}
	if n := len(e.Buttons()); n != 0 {
		t.Errorf("%d buttons left after the failed start", n)
	}
	// The editor's own binding survives.
	if !e.PressFunctionKey(api.F3) {
		t.Error("F3 binding registered before the plugin was removed")
	}

	// A failed start can be retried once the conflict is gone.
	e.RemoveOwner("")
	if _, err := m.Load(context.Background(), "half", e); err != nil {
		t.Errorf("second Load() error = %v", err)
	}
}

func TestManagerLoadAll(t *testing.T) {
	m := newTestManager(t, map[string]*testPlugin{
		"a": {label: "A"},
		"b": {label: "B"},
	})
	e := editor.New(nil)

	err := m.LoadAll(context.Background(), []string{"b", "missing", "a"}, e)
	if !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("LoadAll() error = %v, want ErrPluginNotFound", err)
	}
	if got := m.Loaded(); !reflect.DeepEqual(got, []string{"b", "a"}) {
		t.Errorf("Loaded() = %v, want [b a]", got)
	}
	if got := m.Names(language.German); !reflect.DeepEqual(got, []string{"B-de", "A-de"}) {
		t.Errorf("Names(de) = %v, want [B-de A-de]", got)
	}
}

func TestManagerEvents(t *testing.T) {
	m := newTestManager(t, map[string]*testPlugin{"a": {label: "A"}})

	var got []ManagerEventType
	unsubscribe := m.Subscribe(func(ev ManagerEvent) { got = append(got, ev.Type) })
	m.Subscribe(func(ManagerEvent) { panic("handler bug") })

	if _, err := m.Load(context.Background(), "a", editor.New(nil)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	unsubscribe()
	_, _ = m.Load(context.Background(), "a", editor.New(nil))

	if !reflect.DeepEqual(got, []ManagerEventType{EventLoaded}) {
		t.Errorf("events = %v, want [loaded]", got)
	}
}

func TestManagerEventTypeString(t *testing.T) {
	tests := []struct {
		typ  ManagerEventType
		want string
	}{
		{EventLoaded, "loaded"},
		{EventUnloaded, "unloaded"},
		{EventReloaded, "reloaded"},
		{EventError, "error"},
		{ManagerEventType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
