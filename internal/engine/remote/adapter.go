package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/engine"
	"github.com/razeware/offliner/internal/metrics"
)

// Adapter implements engine.Engine by translating commands into JSON-RPC
// calls. Download ids are used as the engine's transfer ids end to end.
type Adapter struct {
	cl  *Client
	rep engine.Reporter
	log *slog.Logger
}

func NewAdapter(cl *Client, rep engine.Reporter, log *slog.Logger) *Adapter {
	if log == nil {
		log = slog.Default()
	}
	return &Adapter{cl: cl, rep: rep, log: log}
}

var _ engine.Engine = (*Adapter)(nil)

// --- JSON-RPC wire types ---

type rpcReq struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      string `json:"id"`
	Params  any    `json:"params,omitempty"`
}

type rpcResp struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	start := time.Now()
	res, err := a.doCall(ctx, method, params)
	metrics.EngineRPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EngineRPCErrors.WithLabelValues(method).Inc()
	}
	return res, err
}

func (a *Adapter) doCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, _ := json.Marshal(rpcReq{
		Jsonrpc: "2.0",
		Method:  method,
		ID:      "offliner",
		Params:  params,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cl.BaseURL().String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s := a.cl.Secret(); s != "" {
		req.Header.Set("Authorization", "Bearer "+s)
	}

	resp, err := a.cl.HTTP().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("engine http %d: %s", resp.StatusCode, string(b))
	}

	b, _ := io.ReadAll(resp.Body)
	var rr rpcResp
	if err := json.Unmarshal(b, &rr); err != nil {
		return nil, fmt.Errorf("engine rpc decode: %w (%s)", err, string(b))
	}
	if rr.Error != nil {
		return nil, fmt.Errorf("engine rpc error %d: %s", rr.Error.Code, rr.Error.Message)
	}
	return rr.Result, nil
}

type transferParams struct {
	ID   string `json:"id"`
	URL  string `json:"url,omitempty"`
	Name string `json:"name,omitempty"`
}

func (a *Adapter) Start(ctx context.Context, d *data.Download) error {
	_, err := a.call(ctx, "transfer.start", transferParams{ID: d.ID, URL: d.URL, Name: d.Name})
	return err
}

func (a *Adapter) Pause(ctx context.Context, d *data.Download) error {
	_, err := a.call(ctx, "transfer.pause", transferParams{ID: d.ID})
	return err
}

func (a *Adapter) Resume(ctx context.Context, d *data.Download) error {
	_, err := a.call(ctx, "transfer.resume", transferParams{ID: d.ID})
	return err
}

func (a *Adapter) Cancel(ctx context.Context, d *data.Download) error {
	_, err := a.call(ctx, "transfer.cancel", transferParams{ID: d.ID})
	return err
}

func (a *Adapter) CancelAll(ctx context.Context) error {
	_, err := a.call(ctx, "transfer.cancelAll", nil)
	return err
}

func (a *Adapter) ActiveIDs(ctx context.Context) ([]string, error) {
	res, err := a.call(ctx, "transfer.active", nil)
	if err != nil {
		return nil, err
	}
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(res, &out); err != nil {
		return nil, fmt.Errorf("engine active decode: %w", err)
	}
	metrics.ActiveTransfers.Set(float64(len(out.IDs)))
	return out.IDs, nil
}
