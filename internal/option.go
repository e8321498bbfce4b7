package internal

import (
	"io"
	"log/slog"

	"github.com/starford/orgagenda/internal/org"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	out    io.Writer
	logger *slog.Logger
	clock  org.Clock
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOutput sets where one-shot commands print their result.
func WithOutput(w io.Writer) Option {
	return func(a *application) {
		a.out = w
	}
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(a *application) {
		a.logger = l
	}
}

// WithClock overrides the wall clock used for the "now" line.
func WithClock(c org.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}
