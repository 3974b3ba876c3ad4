package buffer

import (
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
	ErrReadOnly         = errors.New("buffer is read-only")
	ErrEmptyPattern     = errors.New("search pattern is empty")
)

// LineEnding specifies the line ending style used when the buffer is written out.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// String returns the string representation of the line ending.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "\\r\\n"
	case LineEndingCR:
		return "\\r"
	default:
		return "\\n"
	}
}

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// RevisionID identifies a buffer state. Every successful mutation yields a new one.
type RevisionID uint64

var revisionCounter atomic.Uint64

// NewRevisionID returns a process-unique revision identifier.
func NewRevisionID() RevisionID {
	return RevisionID(revisionCounter.Add(1))
}

// Buffer holds editable text plus the caret and selection that follow it.
// Text is stored with LF line endings; the configured LineEnding is applied on write.
// All methods are thread-safe.
type Buffer struct {
	mu sync.RWMutex

	text       []rune
	revisionID RevisionID
	savedID    RevisionID
	lineEnding LineEnding
	readOnly   bool

	caret    int
	selStart int
	selEnd   int
}

// NewBuffer creates a new empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		revisionID: NewRevisionID(),
		lineEnding: LineEndingLF,
	}
	b.savedID = b.revisionID

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// NewBufferFromString creates a buffer with initial content.
// The content counts as saved.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.text = []rune(normalizeLineEndings(s))
	return b
}

// NewBufferFromReader creates a buffer from an io.Reader, detecting the
// line ending style of the content.
func NewBufferFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	// Read all content first so CRLF pairs split across reads normalize correctly
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	text := string(data)
	opts = append([]Option{WithLineEnding(DetectLineEnding(text))}, opts...)
	return NewBufferFromString(text, opts...), nil
}

// normalizeLineEndings converts CRLF and CR to LF.
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return string(b.text)
}

// Len returns the buffer length in runes.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.text)
}

// TextRange returns the text between start and end.
// The range is clamped to the buffer; an inverted range yields "".
func (b *Buffer) TextRange(start, end int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start, end = clampRange(start, end, len(b.text))
	if start >= end {
		return ""
	}
	return string(b.text[start:end])
}

// Clamp limits offset to [0, Len()].
func (b *Buffer) Clamp(offset int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return clamp(offset, len(b.text))
}

// ReadOnly reports whether mutations are rejected.
func (b *Buffer) ReadOnly() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readOnly
}

// SetReadOnly toggles read-only mode.
func (b *Buffer) SetReadOnly(readOnly bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readOnly = readOnly
}

// LineEnding returns the line ending used by WriteTo.
func (b *Buffer) LineEnding() LineEnding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lineEnding
}

// RevisionID returns the current revision.
func (b *Buffer) RevisionID() RevisionID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID
}

// Modified reports whether the buffer changed since it was loaded or last saved.
func (b *Buffer) Modified() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.revisionID != b.savedID
}

// MarkSaved records the current revision as saved.
func (b *Buffer) MarkSaved() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.savedID = b.revisionID
}

// Insert inserts text at offset and returns the offset just past it.
// A caret at or after offset moves with the inserted text.
func (b *Buffer) Insert(offset int, text string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return 0, ErrReadOnly
	}
	if offset < 0 || offset > len(b.text) {
		return 0, ErrOffsetOutOfRange
	}

	ins := []rune(normalizeLineEndings(text))
	if len(ins) == 0 {
		return offset, nil
	}

	out := make([]rune, 0, len(b.text)+len(ins))
	out = append(out, b.text[:offset]...)
	out = append(out, ins...)
	out = append(out, b.text[offset:]...)
	b.text = out

	if b.caret >= offset {
		b.caret += len(ins)
	}
	b.clearSelection()
	b.revisionID = NewRevisionID()

	return offset + len(ins), nil
}

// Delete removes the text in [start, end) and returns it.
func (b *Buffer) Delete(start, end int) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return "", ErrReadOnly
	}
	if start < 0 || end > len(b.text) {
		return "", ErrOffsetOutOfRange
	}
	if start > end {
		return "", ErrRangeInvalid
	}
	if start == end {
		return "", nil
	}

	removed := string(b.text[start:end])
	b.text = append(b.text[:start:start], b.text[end:]...)

	switch {
	case b.caret >= end:
		b.caret -= end - start
	case b.caret > start:
		b.caret = start
	}
	b.clearSelection()
	b.revisionID = NewRevisionID()

	return removed, nil
}

// ReplaceAll replaces every non-overlapping occurrence of find, scanning left
// to right, and returns the number of replacements. A caret inside a replaced
// occurrence moves to the end of its replacement.
func (b *Buffer) ReplaceAll(find, replace string) (int, error) {
	if find == "" {
		return 0, ErrEmptyPattern
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return 0, ErrReadOnly
	}

	pat := []rune(find)
	rep := []rune(normalizeLineEndings(replace))

	out := make([]rune, 0, len(b.text))
	count := 0
	caret := -1
	for i := 0; i < len(b.text); {
		if i == b.caret && caret < 0 {
			caret = len(out)
		}
		if hasPrefixAt(b.text, i, pat) {
			out = append(out, rep...)
			if b.caret > i && b.caret < i+len(pat) {
				caret = len(out)
			}
			i += len(pat)
			count++
			continue
		}
		out = append(out, b.text[i])
		i++
	}

	if count == 0 {
		return 0, nil
	}
	if caret < 0 {
		caret = len(out)
	}

	b.text = out
	b.caret = caret
	b.clearSelection()
	b.revisionID = NewRevisionID()

	return count, nil
}

// SetText replaces the whole content. The caret is clamped to the new length.
func (b *Buffer) SetText(text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.readOnly {
		return ErrReadOnly
	}

	next := normalizeLineEndings(text)
	if next == string(b.text) {
		return nil
	}

	b.text = []rune(next)
	b.caret = clamp(b.caret, len(b.text))
	b.clearSelection()
	b.revisionID = NewRevisionID()
	return nil
}

// Caret returns the caret offset.
func (b *Buffer) Caret() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.caret
}

// SetCaret moves the caret, clamping to [0, Len()], and clears the selection.
func (b *Buffer) SetCaret(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caret = clamp(pos, len(b.text))
	b.clearSelection()
}

// Select sets the selection to [start, end) clamped to the buffer and puts
// the caret at its end. An inverted range selects nothing.
func (b *Buffer) Select(start, end int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	start, end = clampRange(start, end, len(b.text))
	if start > end {
		start = end
	}
	b.selStart, b.selEnd = start, end
	b.caret = end
}

// Selection returns the selected range. start == end means no selection.
func (b *Buffer) Selection() (start, end int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selStart, b.selEnd
}

func (b *Buffer) clearSelection() {
	b.selStart, b.selEnd = b.caret, b.caret
}

// WriteTo writes the content using the buffer's line ending.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	b.mu.RLock()
	text := string(b.text)
	le := b.lineEnding
	b.mu.RUnlock()

	if le != LineEndingLF {
		text = strings.ReplaceAll(text, "\n", le.Sequence())
	}
	n, err := io.WriteString(w, text)
	return int64(n), err
}

func hasPrefixAt(text []rune, i int, pat []rune) bool {
	if i+len(pat) > len(text) {
		return false
	}
	for j, r := range pat {
		if text[i+j] != r {
			return false
		}
	}
	return true
}

func clamp(v, length int) int {
	if v < 0 {
		return 0
	}
	if v > length {
		return length
	}
	return v
}

func clampRange(start, end, length int) (int, int) {
	return clamp(start, length), clamp(end, length)
}
