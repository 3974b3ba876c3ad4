package ui

import (
	"fmt"
	"unicode"

	"github.com/dshills/emoted/internal/keymap"
	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/gdamore/tcell/v2"
)

// functionKey converts a tcell function key to the editor's.
func functionKey(k tcell.Key) (api.FunctionKey, bool) {
	if k < tcell.KeyF1 || k > tcell.KeyF12 {
		return 0, false
	}
	return api.F1 + api.FunctionKey(k-tcell.KeyF1), true
}

// buttonIndex returns the toolbar index selected by Alt+1..Alt+9.
func buttonIndex(ev *tcell.EventKey) (int, bool) {
	if ev.Key() != tcell.KeyRune || ev.Modifiers()&tcell.ModAlt == 0 {
		return 0, false
	}
	r := ev.Rune()
	if r < '1' || r > '9' {
		return 0, false
	}
	return int(r - '1'), true
}

// isBackspace matches both codes terminals send for backspace.
func isBackspace(k tcell.Key) bool {
	return k == tcell.KeyBackspace || k == tcell.KeyBackspace2
}

// comboOf returns the keymap combination of a Ctrl or Alt letter key.
// Terminals report Ctrl+letter as a control code, and Shift only as an
// upper-case rune.
func comboOf(ev *tcell.EventKey) (keymap.Combo, bool) {
	mods := ev.Modifiers()
	k := ev.Key()
	switch {
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return keymap.Combo{
			Letter: rune('a' + (k - tcell.KeyCtrlA)),
			Ctrl:   true,
			Alt:    mods&tcell.ModAlt != 0,
			Shift:  mods&tcell.ModShift != 0,
		}, true
	case k == tcell.KeyRune:
		r := ev.Rune()
		lower := unicode.ToLower(r)
		if lower < 'a' || lower > 'z' {
			return keymap.Combo{}, false
		}
		c := keymap.Combo{
			Letter: lower,
			Ctrl:   mods&tcell.ModCtrl != 0,
			Alt:    mods&tcell.ModAlt != 0,
			Shift:  mods&tcell.ModShift != 0 || r != lower,
		}
		return c, c.Ctrl || c.Alt
	}
	return keymap.Combo{}, false
}

// keyName names a Ctrl key the way the status line shows it.
func keyName(k tcell.Key) string {
	if k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ {
		return fmt.Sprintf("Ctrl-%c", rune('A'+(k-tcell.KeyCtrlA)))
	}
	return tcell.KeyNames[k]
}
