package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/starford/orgagenda/internal/index"
	"github.com/starford/orgagenda/internal/mcpserver"
)

// Output formats for PrintAgenda.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// PrintAgenda builds the agenda once from the vault and writes it to the
// configured output.
func PrintAgenda(ctx context.Context, format string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.consoleLogger()

	_, store, err := app.openStore()
	if err != nil {
		return err
	}
	snap, err := app.newService(store, nil, logger).BuildFromVault(ctx)
	if err != nil {
		return fmt.Errorf("build agenda: %w", err)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(app.out)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	case FormatText, "":
		_, err := fmt.Fprint(app.out, snap.String())
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// Jump resolves a rendered agenda line to "<vault path>:<line>" and writes
// it to the configured output.
func Jump(ctx context.Context, line string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	_, store, err := app.openStore()
	if err != nil {
		return err
	}
	target, err := app.newService(store, nil, app.consoleLogger()).Resolve(ctx, line)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(app.out, "%s:%d\n", target.Path, target.Line)
	return err
}

// ServeMCP serves the MCP tools over stdio while a watcher keeps the index
// current. It returns when stdin is closed or ctx is cancelled.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.consoleLogger()

	fsys, store, err := app.openStore()
	if err != nil {
		return err
	}
	db, err := index.Open(app.config.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc := app.newService(store, db, logger)
	initialSync(db, store, svc, logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := index.Watch(ctx, db, store, fsys.Root(), svc.ParseDocument, logger, nil); err != nil {
			logger.Error("watcher stopped", slog.String("error", err.Error()))
		}
	}()

	err = mcpserver.New(svc).ServeStdio()
	cancel()
	<-watchDone
	return err
}
