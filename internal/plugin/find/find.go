// Package find adds a "Find..." button and F3 binding that prompt for a term
// and select its next occurrence after the caret.
//
// Text and term are compared in Unicode NFC, so a term typed with a
// precomposed "é" matches an "e" followed by a combining acute accent.
package find

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/unicode/norm"
)

// Key is the function key bound to find.
const Key = api.F3

// Message keys.
const (
	msgName   = "Find"
	msgButton = "Find..."
	msgPrompt = "Enter search term"
)

var translations = []struct {
	tag       language.Tag
	key, text string
}{
	{language.German, msgName, "Suchen"},
	{language.German, msgButton, "Suchen..."},
	{language.German, msgPrompt, "Suchbegriff eingeben"},
	{language.Spanish, msgName, "Buscar"},
	{language.Spanish, msgButton, "Buscar..."},
	{language.Spanish, msgPrompt, "Introduzca el término de búsqueda"},
}

var messages = mustCatalog()

// mustCatalog builds the message catalog. The translations are fixed, so
// an error is a programming mistake.
func mustCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, t := range translations {
		if err := b.SetString(t.tag, t.key, t.text); err != nil {
			panic(fmt.Sprintf("find: message %q for %s: %v", t.key, t.tag, err))
		}
	}
	return b
}

func translate(locale language.Tag, key string) string {
	return message.NewPrinter(locale, message.Catalog(messages)).Sprintf(key)
}

// Find returns the rune range [start, end) of the first occurrence of term
// in text, comparing both in NFC. The range is in text's own offsets even
// when normalization changes its length.
func Find(text, term string) (start, end int, ok bool) {
	needle := norm.NFC.String(term)
	if needle == "" {
		return 0, 0, false
	}

	// Boundaries of normalization segments, in runes of the NFC text and
	// of the original text.
	normAt := []int{0}
	origAt := []int{0}

	var sb strings.Builder
	var it norm.Iter
	it.InitString(norm.NFC, text)
	nr, or, pos := 0, 0, 0
	for !it.Done() {
		seg := it.Next()
		sb.Write(seg)
		nr += utf8.RuneCount(seg)
		or += utf8.RuneCountInString(text[pos:it.Pos()])
		pos = it.Pos()
		normAt = append(normAt, nr)
		origAt = append(origAt, or)
	}

	haystack := sb.String()
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return 0, 0, false
	}
	nStart := utf8.RuneCountInString(haystack[:idx])
	nEnd := nStart + utf8.RuneCountInString(needle)

	// Widen to whole segments: last boundary at or before the start, first
	// at or after the end.
	i := sort.SearchInts(normAt, nStart+1) - 1
	j := sort.SearchInts(normAt, nEnd)
	return origAt[i], origAt[j], true
}

// Plugin is the find plugin.
type Plugin struct {
	logger zerolog.Logger
}

// New creates the find plugin.
func New(logger zerolog.Logger) *Plugin {
	return &Plugin{logger: logger.With().Str("component", "find").Logger()}
}

// Start registers the button and F3. The button label and prompt use the
// editor locale at the time the plugin starts.
func (p *Plugin) Start(host api.API) error {
	locale := host.Locale()
	search := p.search(host, translate(locale, msgPrompt))

	if err := host.RegisterButton(translate(locale, msgButton), search); err != nil {
		return err
	}
	return host.RegisterOnFunctionKeyEvent(Key, search)
}

func (p *Plugin) search(host api.API, prompt string) api.EventHandler {
	return func() {
		term, ok := host.PromptUser(prompt)
		if !ok || term == "" {
			return
		}

		caret := host.CaretPosition()
		start, end, found := Find(host.TextRange(caret, host.TextLength()), term)
		if !found {
			p.logger.Debug().Str("term", term).Msg("not found")
			return
		}
		host.HighlightText(caret+start, caret+end)
	}
}

// Name returns "Find" in the locale's language.
func (p *Plugin) Name(locale language.Tag) string {
	return translate(locale, msgName)
}
