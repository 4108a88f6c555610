package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"nhooyr.io/websocket"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/engine"
)

// Notification is the wire shape of an async event pushed by the engine.
type Notification struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Progress int    `json:"progress"`
	Reason   string `json:"reason,omitempty"`
}

// Notifications connects to the engine's websocket endpoint and streams
// async notifications. The returned channel is closed when the connection
// terminates or the context is cancelled.
func (c *Client) Notifications(ctx context.Context) (<-chan Notification, error) {
	wsURL := *c.baseURL
	switch wsURL.Scheme {
	case "http":
		wsURL.Scheme = "ws"
	case "https":
		wsURL.Scheme = "wss"
	default:
		return nil, fmt.Errorf("unsupported scheme: %s", wsURL.Scheme)
	}
	conn, _, err := websocket.Dial(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, err
	}
	ch := make(chan Notification, 8)
	go func() {
		defer close(ch)
		defer func() { _ = conn.Close(websocket.StatusNormalClosure, "done") }()
		for {
			_, raw, err := conn.Read(ctx)
			if err != nil {
				return
			}
			// the engine may send newline-delimited JSON; trim
			raw = []byte(strings.TrimSpace(string(raw)))
			var n Notification
			if err := json.Unmarshal(raw, &n); err != nil {
				continue
			}
			ch <- n
		}
	}()
	return ch, nil
}

// Run subscribes to engine notifications and forwards them to the reporter
// as typed events. It returns when the context is cancelled or the stream
// closes.
func (a *Adapter) Run(ctx context.Context) {
	opID := uuid.NewString()
	lg := a.log.With("operation_id", opID)
	ch, err := a.cl.Notifications(ctx)
	if err != nil {
		lg.Error("subscribe notifications", "err", err)
		return
	}
	lg.Info("engine event stream connected")
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if ev, ok := mapNotification(n); ok {
				a.rep.Report(ev)
			} else {
				lg.Warn("unknown notification kind", "id", n.ID, "kind", n.Kind)
			}
		}
	}
}

func mapNotification(n Notification) (engine.Event, bool) {
	ev := engine.Event{ID: n.ID, Progress: n.Progress}
	switch n.Kind {
	case "started":
		ev.Type = engine.EventStarted
	case "paused":
		ev.Type = engine.EventPaused
	case "completed":
		ev.Type = engine.EventCompleted
	case "failed":
		ev.Type = engine.EventFailed
		ev.Reason = mapReason(n.Reason)
	case "removing":
		ev.Type = engine.EventRemoving
	case "progress":
		ev.Type = engine.EventProgress
	default:
		return engine.Event{}, false
	}
	return ev, true
}

func mapReason(s string) data.FailureReason {
	switch s {
	case "network":
		return data.FailureNetwork
	case "auth":
		return data.FailureAuth
	case "storage":
		return data.FailureStorage
	default:
		return data.FailureOther
	}
}
