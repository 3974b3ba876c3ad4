// Package date adds a toolbar button that inserts the current date and time
// at the caret, written the way the editor locale writes dates.
package date

import (
	"time"

	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// ButtonLabel is the toolbar label.
const ButtonLabel = "Date"

// Medium-length date-time layouts per supported language.
var layouts = []string{
	"Jan 2, 2006, 3:04:05 PM", // en
	"02.01.2006, 15:04:05",    // de
	"02/01/2006 15:04:05",     // es
}

var supported = []language.Tag{
	language.English,
	language.German,
	language.Spanish,
}

var matcher = language.NewMatcher(supported)

var names = func() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	must(b.SetString(language.German, ButtonLabel, "Datum"))
	must(b.SetString(language.Spanish, ButtonLabel, "Fecha"))
	return b
}()

func must(err error) {
	if err != nil {
		panic("date: " + err.Error())
	}
}

// Layout returns the time layout used for locale. Unsupported locales get
// the English layout.
func Layout(locale language.Tag) string {
	_, idx, _ := matcher.Match(locale)
	return layouts[idx]
}

// Format writes t the way locale writes a medium date and time.
func Format(t time.Time, locale language.Tag) string {
	return t.Format(Layout(locale))
}

// Plugin is the date plugin.
type Plugin struct {
	now    func() time.Time
	logger zerolog.Logger
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Plugin) {
		p.now = now
	}
}

// New creates the date plugin.
func New(logger zerolog.Logger, opts ...Option) *Plugin {
	p := &Plugin{
		now:    time.Now,
		logger: logger.With().Str("component", "date").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start registers the Date button.
func (p *Plugin) Start(host api.API) error {
	return host.RegisterButton(ButtonLabel, func() {
		text := Format(p.now(), host.Locale())
		if err := host.InsertText(text); err != nil {
			p.logger.Warn().Err(err).Msg("insert date failed")
		}
	})
}

// Name returns "Date" in the locale's language.
func (p *Plugin) Name(locale language.Tag) string {
	return message.NewPrinter(locale, message.Catalog(names)).Sprintf("Date")
}
