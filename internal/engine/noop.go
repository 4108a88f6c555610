package engine

import (
	"context"
	"log/slog"

	"github.com/razeware/offliner/internal/data"
)

// noopEngine accepts every command and runs nothing. Useful for wiring the
// service without a transfer engine.
type noopEngine struct {
	log *slog.Logger
}

func NewNoopEngine(log *slog.Logger) Engine {
	if log == nil {
		log = slog.Default()
	}
	return &noopEngine{log: log}
}

func (e *noopEngine) Start(ctx context.Context, d *data.Download) error {
	e.log.Info("noop: start", "id", d.ID)
	return nil
}

func (e *noopEngine) Pause(ctx context.Context, d *data.Download) error {
	e.log.Info("noop: pause", "id", d.ID)
	return nil
}

func (e *noopEngine) Resume(ctx context.Context, d *data.Download) error {
	e.log.Info("noop: resume", "id", d.ID)
	return nil
}

func (e *noopEngine) Cancel(ctx context.Context, d *data.Download) error {
	e.log.Info("noop: cancel", "id", d.ID)
	return nil
}

func (e *noopEngine) CancelAll(ctx context.Context) error {
	e.log.Info("noop: cancel all")
	return nil
}

func (e *noopEngine) ActiveIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}
