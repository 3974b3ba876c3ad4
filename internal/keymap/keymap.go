// Package keymap binds key combinations to small text edits: inserting or
// deleting a fixed string at the caret or at the start of the caret's line.
//
// Bindings come from the configuration:
//
//	keymap:
//	  - keys: ctrl+alt+c
//	    action: insert
//	    at: line-start
//	    text: "// "
//	  - keys: alt+shift+c
//	    action: delete
//	    at: line-start
//	    text: "// "
package keymap

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/emoted/internal/plugin/api"
)

// Errors returned by Parse.
var (
	ErrInvalidCombo = errors.New("invalid key combination")
	ErrNoModifier   = errors.New("key combination needs ctrl or alt")
	ErrReserved     = errors.New("key combination is reserved")
	ErrInvalidEntry = errors.New("invalid keymap entry")
)

// Action is what a binding does with its text.
type Action string

const (
	Insert Action = "insert"
	Delete Action = "delete"
)

// Position is where a binding applies its text.
type Position string

const (
	AtCaret     Position = "caret"
	AtLineStart Position = "line-start"
)

// Combo is a letter plus modifiers. Letter is lower case.
type Combo struct {
	Letter rune
	Ctrl   bool
	Alt    bool
	Shift  bool
}

// reserved are combinations the editor handles itself or that terminals
// cannot tell apart from other keys (Ctrl-H is Backspace, Ctrl-I is Tab,
// Ctrl-M is Enter).
var reserved = []Combo{
	{Letter: 'q', Ctrl: true},
	{Letter: 's', Ctrl: true},
	{Letter: 'o', Ctrl: true},
	{Letter: 'p', Ctrl: true},
	{Letter: 'h', Ctrl: true},
	{Letter: 'i', Ctrl: true},
	{Letter: 'm', Ctrl: true},
}

// ParseCombo parses "ctrl+shift+a" style names, case-insensitively.
func ParseCombo(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			r, size := utf8.DecodeRuneInString(p)
			if size != len(p) || r < 'a' || r > 'z' {
				return Combo{}, fmt.Errorf("%w %q: last part must be a letter", ErrInvalidCombo, s)
			}
			c.Letter = r
			break
		}
		switch p {
		case "ctrl", "control":
			c.Ctrl = true
		case "alt", "meta":
			c.Alt = true
		case "shift":
			c.Shift = true
		default:
			return Combo{}, fmt.Errorf("%w %q: unknown modifier %q", ErrInvalidCombo, s, p)
		}
	}
	if !c.Ctrl && !c.Alt {
		return Combo{}, fmt.Errorf("%w: %q", ErrNoModifier, s)
	}
	for _, r := range reserved {
		if c == r {
			return Combo{}, fmt.Errorf("%w: %s", ErrReserved, c)
		}
	}
	return c, nil
}

// String renders the combination as CTRL+ALT+SHIFT+A.
func (c Combo) String() string {
	var sb strings.Builder
	if c.Ctrl {
		sb.WriteString("CTRL+")
	}
	if c.Alt {
		sb.WriteString("ALT+")
	}
	if c.Shift {
		sb.WriteString("SHIFT+")
	}
	sb.WriteRune(unicode.ToUpper(c.Letter))
	return sb.String()
}

// Entry is the configuration form of a binding.
type Entry struct {
	Keys   string `mapstructure:"keys"`
	Action string `mapstructure:"action"`
	At     string `mapstructure:"at"`
	Text   string `mapstructure:"text"`
}

// Binding is a parsed keymap entry.
type Binding struct {
	Combo    Combo
	Action   Action
	Position Position
	Text     string
}

// String renders the binding as CTRL+A --> insert "x" at caret.
func (b Binding) String() string {
	where := "caret"
	if b.Position == AtLineStart {
		where = "start of line"
	}
	return fmt.Sprintf("%s --> %s %q at %s", b.Combo, b.Action, b.Text, where)
}

// readOnlyer is implemented by hosts that can tell whether edits will be
// rejected.
type readOnlyer interface {
	ReadOnly() bool
}

// Apply performs the binding's edit on host. A delete whose text does not
// match is a no-op; on a read-only host every binding fails with
// api.ErrReadOnly.
func (b Binding) Apply(host api.API) error {
	if ro, ok := host.(readOnlyer); ok && ro.ReadOnly() {
		return api.ErrReadOnly
	}
	switch {
	case b.Action == Insert && b.Position == AtCaret:
		return host.InsertText(b.Text)
	case b.Action == Insert:
		return host.InsertTextAt(lineStart(host), b.Text)
	case b.Position == AtCaret:
		host.DeleteBeforeCaret(b.Text)
		return nil
	default:
		start := lineStart(host)
		end := start + utf8.RuneCountInString(b.Text)
		if host.TextRange(start, end) == b.Text {
			host.DeleteText(start, end)
		}
		return nil
	}
}

// lineStart returns the offset of the first rune of the caret's line.
func lineStart(host api.API) int {
	before := host.TextRange(0, host.CaretPosition())
	i := strings.LastIndexByte(before, '\n')
	if i < 0 {
		return 0
	}
	return utf8.RuneCountInString(before[:i+1])
}

// Keymap is an ordered list of bindings. The first binding for a
// combination wins.
type Keymap struct {
	bindings []Binding
}

// Parse converts configuration entries. Every invalid entry is reported;
// the valid ones are still returned.
func Parse(entries []Entry) (*Keymap, error) {
	k := &Keymap{}
	var errs []error
	for i, e := range entries {
		b, err := parseEntry(e)
		if err != nil {
			errs = append(errs, fmt.Errorf("keymap entry %d: %w", i+1, err))
			continue
		}
		k.bindings = append(k.bindings, b)
	}
	return k, errors.Join(errs...)
}

func parseEntry(e Entry) (Binding, error) {
	combo, err := ParseCombo(e.Keys)
	if err != nil {
		return Binding{}, err
	}
	b := Binding{Combo: combo, Text: e.Text}

	switch Action(strings.ToLower(e.Action)) {
	case Insert:
		b.Action = Insert
	case Delete:
		b.Action = Delete
	default:
		return Binding{}, fmt.Errorf("%w: action %q, want insert or delete", ErrInvalidEntry, e.Action)
	}

	switch Position(strings.ToLower(e.At)) {
	case AtCaret, "":
		b.Position = AtCaret
	case AtLineStart:
		b.Position = AtLineStart
	default:
		return Binding{}, fmt.Errorf("%w: at %q, want caret or line-start", ErrInvalidEntry, e.At)
	}

	if b.Text == "" {
		return Binding{}, fmt.Errorf("%w: empty text", ErrInvalidEntry)
	}
	return b, nil
}

// Lookup returns the binding for c.
func (k *Keymap) Lookup(c Combo) (Binding, bool) {
	if k == nil {
		return Binding{}, false
	}
	for _, b := range k.bindings {
		if b.Combo == c {
			return b, true
		}
	}
	return Binding{}, false
}

// Bindings returns the bindings in order.
func (k *Keymap) Bindings() []Binding {
	if k == nil {
		return nil
	}
	return append([]Binding(nil), k.bindings...)
}

// Len returns the number of bindings.
func (k *Keymap) Len() int {
	if k == nil {
		return 0
	}
	return len(k.bindings)
}
