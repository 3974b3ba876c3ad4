package editor

import (
	"github.com/rs/zerolog"
	"golang.org/x/text/language"
)

// Option configures an Editor.
type Option func(*Editor)

// WithLocale sets the locale reported to plugins.
func WithLocale(tag language.Tag) Option {
	return func(e *Editor) {
		e.locale = tag
	}
}

// WithLogger sets the logger used for plugin failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger.With().Str("component", "editor").Logger()
	}
}

// WithNotifier sets where user-facing messages go.
func WithNotifier(n Notifier) Option {
	return func(e *Editor) {
		e.notifier = n
	}
}

// WithPrompter sets the prompter backing PromptUser.
func WithPrompter(p Prompter) Option {
	return func(e *Editor) {
		e.prompter = p
	}
}
