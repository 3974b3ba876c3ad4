package buffer

// Point is a line/column position. Both are 0-indexed; Column counts runes.
type Point struct {
	Line   int
	Column int
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 1
	for _, r := range b.text {
		if r == '\n' {
			n++
		}
	}
	return n
}

// Line returns the text of line n without its newline, or "" when n is out of range.
func (b *Buffer) Line(n int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start, end, ok := b.lineBounds(n)
	if !ok {
		return ""
	}
	return string(b.text[start:end])
}

// PositionOf converts a rune offset to a Point. The offset is clamped first.
func (b *Buffer) PositionOf(offset int) Point {
	b.mu.RLock()
	defer b.mu.RUnlock()

	offset = clamp(offset, len(b.text))
	var p Point
	for i := 0; i < offset; i++ {
		if b.text[i] == '\n' {
			p.Line++
			p.Column = 0
			continue
		}
		p.Column++
	}
	return p
}

// OffsetOf converts a Point to a rune offset. Lines past the end map to the
// buffer end; columns past the line end map to the line end.
func (b *Buffer) OffsetOf(p Point) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if p.Line < 0 {
		return 0
	}
	start, end, ok := b.lineBounds(p.Line)
	if !ok {
		return len(b.text)
	}
	return start + clamp(p.Column, end-start)
}

// lineBounds returns the [start, end) offsets of line n, excluding the newline.
// Caller must hold the lock.
func (b *Buffer) lineBounds(n int) (int, int, bool) {
	if n < 0 {
		return 0, 0, false
	}
	line := 0
	start := 0
	for i, r := range b.text {
		if r != '\n' {
			continue
		}
		if line == n {
			return start, i, true
		}
		line++
		start = i + 1
	}
	if line == n {
		return start, len(b.text), true
	}
	return 0, 0, false
}
