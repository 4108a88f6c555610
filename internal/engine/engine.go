// Package engine defines the contract with the external transfer engine.
// The orchestrator only issues commands and consumes events; the actual byte
// transfer happens outside the process.
package engine

import (
	"context"
	"errors"

	"github.com/razeware/offliner/internal/data"
)

// ErrUnknownDownload is returned when the engine has no transfer for the id.
var ErrUnknownDownload = errors.New("engine: unknown download")

// Engine manages a download's transfer lifecycle. Start must be idempotent:
// re-starting an id the engine already runs is a no-op on its side.
type Engine interface {
	Start(ctx context.Context, d *data.Download) error
	Pause(ctx context.Context, d *data.Download) error
	Resume(ctx context.Context, d *data.Download) error
	Cancel(ctx context.Context, d *data.Download) error
	CancelAll(ctx context.Context) error
	// ActiveIDs reports which downloads the engine is actually running.
	// Startup reconciliation uses it to demote rows stranded InProgress.
	ActiveIDs(ctx context.Context) ([]string, error)
}

// EventSource is implemented by engines that push asynchronous events.
// Wiring launches Run(ctx) when available to stream notifications into the
// reconciler.
type EventSource interface {
	Run(ctx context.Context)
}
