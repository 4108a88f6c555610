// Package reconciler consumes transfer-engine events and feeds them to the
// orchestrator. Events for one transfer arrive already serialized by the
// engine; the loop processes them one at a time.
package reconciler

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/razeware/offliner/internal/engine"
	"github.com/razeware/offliner/internal/metrics"
)

// Sink is the part of the orchestrator the reconciler drives.
type Sink interface {
	HandleEvent(ctx context.Context, ev engine.Event)
}

type Reconciler struct {
	sink   Sink
	events <-chan engine.Event
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	stop chan struct{}
	wg   sync.WaitGroup
}

func New(log *slog.Logger, sink Sink, events <-chan engine.Event) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{sink: sink, events: events, log: log, ctx: context.Background()}
}

// Run starts the event loop.
func (r *Reconciler) Run() {
	r.stop = make(chan struct{})
	r.ctx, r.cancel = context.WithCancel(r.ctx)
	// Tag this run with a stable operation_id for easier correlation.
	opID := uuid.NewString()
	r.log = r.log.With("operation_id", opID)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.stop:
				return
			case e, ok := <-r.events:
				if !ok {
					return
				}
				r.handle(e)
			}
		}
	}()
}

// Stop terminates the event loop.
func (r *Reconciler) Stop() {
	if r.stop != nil {
		close(r.stop)
		if r.cancel != nil {
			r.cancel()
		}
		r.wg.Wait()
	}
}

func (r *Reconciler) handle(e engine.Event) {
	metrics.QueueEvents.WithLabelValues(strings.ToLower(string(e.Type))).Inc()
	r.log.Info("engine event", "id", e.ID, "type", string(e.Type))
	r.sink.HandleEvent(r.ctx, e)
}
