package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/uniseg"
)

var (
	styleBody    = tcell.StyleDefault
	styleToolbar = tcell.StyleDefault.Reverse(true)
	styleButton  = tcell.StyleDefault.Reverse(true).Bold(true)
	styleSelect  = tcell.StyleDefault.Reverse(true)
	styleStatus  = tcell.StyleDefault.Reverse(true)
)

// Draw renders the whole screen.
func (u *UI) Draw() {
	u.screen.Clear()
	w, h := u.screen.Size()
	if w <= 0 || h < 3 {
		u.screen.Show()
		return
	}

	u.drawToolbar(w)
	u.drawBody(w, h-2)
	u.drawStatus(w, h-1)
	u.screen.Show()
}

func (u *UI) drawToolbar(w int) {
	fill(u.screen, 0, w, styleToolbar)
	x := 0
	for i, b := range u.editor.Buttons() {
		label := b.Label
		if i < 9 {
			label = fmt.Sprintf("%d:%s", i+1, label)
		}
		x = putString(u.screen, x, 0, w, "["+label+"]", styleButton)
		x = putString(u.screen, x, 0, w, " ", styleToolbar)
	}
}

// drawBody renders buffer lines into rows 1..rows and places the cursor.
func (u *UI) drawBody(w, rows int) {
	buf := u.editor.Buffer()
	lines := splitLines(buf.Text())
	caret := buf.Caret()
	selStart, selEnd := buf.Selection()

	caretLine := lineOf(lines, caret)
	if caretLine < u.top {
		u.top = caretLine
	}
	if caretLine >= u.top+rows {
		u.top = caretLine - rows + 1
	}

	for row := 0; row < rows && u.top+row < len(lines); row++ {
		y := row + 1
		for _, c := range layoutLine(lines[u.top+row]) {
			if c.col+c.width > w {
				break
			}
			style := styleBody
			if c.offset >= selStart && c.offset < selEnd {
				style = styleSelect
			}
			if c.runes[0] == '\t' {
				for i := 0; i < c.width; i++ {
					u.screen.SetContent(c.col+i, y, ' ', nil, style)
				}
				continue
			}
			u.screen.SetContent(c.col, y, c.runes[0], c.runes[1:], style)
		}
	}

	x := columnOf(lines[caretLine], caret)
	if x >= w {
		x = w - 1
	}
	u.screen.ShowCursor(x, caretLine-u.top+1)
}

func (u *UI) drawStatus(w, y int) {
	fill(u.screen, y, w, styleStatus)

	msg := u.status
	if msg == "" {
		buf := u.editor.Buffer()
		pos := buf.PositionOf(buf.Caret())
		title := u.opts.Title
		if title == "" {
			title = "[No Name]"
		}
		if buf.Modified() {
			title += " [+]"
		}
		msg = fmt.Sprintf("%s  Ln %d, Col %d", title, pos.Line+1, pos.Column+1)
		if u.opts.Encoding != "" {
			msg += "  " + u.opts.Encoding
		}
	}
	putString(u.screen, 0, y, w, msg, styleStatus)
}

func (u *UI) drawPrompt(prompt, input string) {
	w, h := u.screen.Size()
	if h < 1 {
		return
	}
	y := h - 1
	fill(u.screen, y, w, styleStatus)
	x := putString(u.screen, 0, y, w, prompt+": ", styleStatus)
	x = putString(u.screen, x, y, w, input, styleStatus)
	if x >= w {
		x = w - 1
	}
	u.screen.ShowCursor(x, y)
}

// fill paints row y with spaces in style.
func fill(s tcell.Screen, y, w int, style tcell.Style) {
	for x := 0; x < w; x++ {
		s.SetContent(x, y, ' ', nil, style)
	}
}

// putString draws str from column x, clipped at w, and returns the column
// after the last cluster drawn.
func putString(s tcell.Screen, x, y, w int, str string, style tcell.Style) int {
	g := uniseg.NewGraphemes(str)
	for g.Next() {
		runes := g.Runes()
		cw := g.Width()
		if x+cw > w {
			break
		}
		s.SetContent(x, y, runes[0], runes[1:], style)
		x += cw
	}
	return x
}
