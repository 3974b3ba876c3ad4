package api

import (
	"fmt"
	"strconv"
	"strings"
)

// FunctionKey identifies one of the function keys F1 through F12.
type FunctionKey int

// Function keys.
const (
	F1 FunctionKey = iota + 1
	F2
	F3
	F4
	F5
	F6
	F7
	F8
	F9
	F10
	F11
	F12
)

// Valid reports whether k is F1..F12.
func (k FunctionKey) Valid() bool {
	return k >= F1 && k <= F12
}

// String returns "F1".."F12".
func (k FunctionKey) String() string {
	if !k.Valid() {
		return "F?"
	}
	return "F" + strconv.Itoa(int(k))
}

// ParseFunctionKey parses names like "F3" or "f3".
func ParseFunctionKey(s string) (FunctionKey, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || (s[0] != 'F' && s[0] != 'f') {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	k := FunctionKey(n)
	if !k.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return k, nil
}
