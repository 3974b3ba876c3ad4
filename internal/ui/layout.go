package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// tabWidth is the number of columns a tab advances to.
const tabWidth = 4

// line is one buffer line and the rune offset it starts at.
type line struct {
	start int
	text  string
	runes int
}

// end is the offset of the line's last rune plus one, excluding the newline.
func (l line) end() int {
	return l.start + l.runes
}

// splitLines breaks text into lines. There is always at least one line.
func splitLines(text string) []line {
	parts := strings.Split(text, "\n")
	lines := make([]line, len(parts))
	offset := 0
	for i, p := range parts {
		n := utf8.RuneCountInString(p)
		lines[i] = line{start: offset, text: p, runes: n}
		offset += n + 1
	}
	return lines
}

// lineOf returns the index of the line holding offset.
func lineOf(lines []line, offset int) int {
	for i, l := range lines {
		if offset <= l.end() {
			return i
		}
	}
	return len(lines) - 1
}

// cluster is a grapheme cluster placed on screen.
type cluster struct {
	offset int // rune offset in the buffer
	runes  []rune
	col    int
	width  int
}

// layoutLine places the grapheme clusters of l in columns. Tabs advance to
// the next tab stop.
func layoutLine(l line) []cluster {
	var out []cluster
	col, offset := 0, l.start
	g := uniseg.NewGraphemes(l.text)
	for g.Next() {
		runes := g.Runes()
		w := g.Width()
		if len(runes) == 1 && runes[0] == '\t' {
			w = tabWidth - col%tabWidth
		}
		out = append(out, cluster{offset: offset, runes: runes, col: col, width: w})
		col += w
		offset += len(runes)
	}
	return out
}

// columnOf returns the screen column of offset within l. An offset inside
// a cluster maps to the cluster's column.
func columnOf(l line, offset int) int {
	col := 0
	for _, c := range layoutLine(l) {
		if offset < c.offset+len(c.runes) {
			return c.col
		}
		col = c.col + c.width
	}
	return col
}

// offsetAt returns the buffer offset displayed at column col of l, or the
// end of the line when col is past it.
func offsetAt(l line, col int) int {
	for _, c := range layoutLine(l) {
		if col < c.col+c.width {
			return c.offset
		}
	}
	return l.end()
}
