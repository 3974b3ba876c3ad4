// Package charset converts file content between the editor's UTF-8 text
// and the encoding a file is stored in.
package charset

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Default is used when no encoding is configured.
const Default = "UTF-8"

// ErrUnsupported is returned for encoding names that are unknown or that
// have no implementation.
var ErrUnsupported = errors.New("unsupported encoding")

// Common lists the encodings offered to the user, in order.
var Common = []string{"UTF-8", "UTF-16", "UTF-32"}

// The UTF-16 and UTF-32 forms read a byte order mark when there is one and
// assume big endian otherwise. They write big endian with a mark.
var builtin = map[string]encoding.Encoding{
	"utf-8":  unicode.UTF8,
	"utf8":   unicode.UTF8,
	"utf-16": unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf16":  unicode.UTF16(unicode.BigEndian, unicode.UseBOM),
	"utf-32": utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
	"utf32":  utf32.UTF32(utf32.BigEndian, utf32.UseBOM),
}

// Lookup returns the encoding for name, case-insensitively. Besides the
// Unicode forms, any IANA name with an implementation is accepted
// (ISO-8859-1, windows-1252, Shift_JIS, ...). An empty name is UTF-8.
func Lookup(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return unicode.UTF8, nil
	}
	if enc, ok := builtin[key]; ok {
		return enc, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnsupported, name)
	}
	if enc == nil {
		// Known to IANA but not implemented.
		return nil, fmt.Errorf("%w %q", ErrUnsupported, name)
	}
	return enc, nil
}

// Decode converts data from enc to UTF-8. Invalid input is replaced with
// U+FFFD.
func Decode(data []byte, enc encoding.Encoding) (string, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// NewWriter returns a writer that encodes UTF-8 written to it into w.
// Runes enc cannot represent are written as its replacement character.
// Close flushes buffered output but does not close w.
func NewWriter(w io.Writer, enc encoding.Encoding) io.WriteCloser {
	return transform.NewWriter(w, encoding.ReplaceUnsupported(enc.NewEncoder()))
}
