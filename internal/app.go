package internal

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/orgagenda/internal/agendaservice"
	"github.com/starford/orgagenda/internal/index"
	"github.com/starford/orgagenda/internal/org"
	"github.com/starford/orgagenda/internal/storage"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// consoleLogger logs to stderr so stdout stays free for command output.
func (a *application) consoleLogger() *slog.Logger {
	if a.logger == nil {
		a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	return a.logger
}

// jsonLogger is the structured logger used by the long-running server.
func (a *application) jsonLogger(w io.Writer) *slog.Logger {
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	return a.logger
}

// openStore returns the vault provider, restricted to vault.files when set.
func (a *application) openStore() (*storage.FS, storage.Provider, error) {
	fsys, err := storage.NewFS(a.config.Vault.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	if len(a.config.Vault.Files) > 0 {
		return fsys, storage.Select(fsys, a.config.Vault.Files), nil
	}
	return fsys, fsys, nil
}

func (a *application) newBuilder(logger *slog.Logger) *org.Builder {
	clock := a.clock
	if clock == nil {
		loc := a.config.Agenda.Location()
		clock = org.ClockFunc(func() time.Time { return time.Now().In(loc) })
	}
	return org.NewBuilder(
		org.WithClock(clock),
		org.WithPolicy(a.config.Agenda.Policy()),
		org.WithNowEntry(a.config.Agenda.NowEntryEnabled()),
		org.WithLogger(logger),
	)
}

// newService wires the agenda service. db may be nil for commands that
// only read the vault.
func (a *application) newService(store storage.Provider, db index.EntryIndex, logger *slog.Logger) *agendaservice.Service {
	return agendaservice.NewService(store, db, a.newBuilder(logger), a.config.Agenda.Location(), logger)
}

// initialSync brings the index up to date with the vault. A failure is
// logged and the previous index content is served.
func initialSync(db index.EntryIndex, store storage.Provider, svc *agendaservice.Service, logger *slog.Logger) {
	changes, err := index.Sync(db, store, svc.ParseDocument, logger)
	if err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	logger.Info("initial sync done", slog.Int("changes", len(changes)))
}
