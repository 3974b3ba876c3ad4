// Package emoji substitutes the ASCII smiley ":-)" with U+1F60A as the user types.
package emoji

import (
	"github.com/dshills/emoted/internal/plugin/api"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

const (
	// Pattern is the text that gets replaced.
	Pattern = ":-)"

	// Replacement is SMILING FACE WITH SMILING EYES.
	Replacement = "\U0001F60A"
)

// Handler replaces every Pattern in the buffer after each modification.
// It keeps no state between events.
type Handler struct {
	api    api.API
	logger zerolog.Logger
}

// NewHandler creates a handler that edits through host.
func NewHandler(host api.API, logger zerolog.Logger) *Handler {
	return &Handler{
		api:    host,
		logger: logger.With().Str("component", "emoji").Logger(),
	}
}

// OnTextModified asks the host to replace every occurrence of Pattern.
// The request is issued on every event; a buffer without the pattern is
// left unchanged. Host failures are logged and dropped.
func (h *Handler) OnTextModified(_, _ string) {
	if _, err := h.api.ReplaceText(Pattern, Replacement); err != nil {
		h.logger.Warn().Err(err).Msg("emoji substitution failed")
	}
}

// Initialize creates a handler for host and registers it once.
func Initialize(host api.API, logger zerolog.Logger) (*Handler, error) {
	h := NewHandler(host, logger)
	if err := host.RegisterTextModificationHandler(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Plugin is the compiled-in form of the emoji substitution.
type Plugin struct {
	logger zerolog.Logger
}

// New creates the plugin.
func New(logger zerolog.Logger) *Plugin {
	return &Plugin{logger: logger}
}

// Start registers the substitution handler.
func (p *Plugin) Start(host api.API) error {
	_, err := Initialize(host, p.logger)
	return err
}

// Name returns the plugin name; it is the same in every locale.
func (p *Plugin) Name(language.Tag) string {
	return "Emoji"
}
