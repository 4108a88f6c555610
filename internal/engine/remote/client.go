// Package remote implements the Engine interface against the transfer
// engine's JSON-RPC endpoint, with state-change notifications streamed over a
// websocket on the same host.
package remote

import (
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Client holds the connection details for the engine's RPC endpoint.
type Client struct {
	baseURL *url.URL
	secret  string
	http    *http.Client
}

// NewClientFromEnv reads ENGINE_RPC_URL, ENGINE_SECRET and ENGINE_TIMEOUT_MS.
func NewClientFromEnv() (*Client, error) {
	ms := 3000
	if v := os.Getenv("ENGINE_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ms = parsed
		}
	}

	rawURL := os.Getenv("ENGINE_RPC_URL")
	if rawURL == "" {
		rawURL = "http://127.0.0.1:6801/jsonrpc"
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		secret:  os.Getenv("ENGINE_SECRET"),
		http:    &http.Client{Timeout: time.Duration(ms) * time.Millisecond},
	}, nil
}

// NewClient is mainly for tests against httptest servers.
func NewClient(base string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	if hc == nil {
		hc = &http.Client{Timeout: 3 * time.Second}
	}
	return &Client{baseURL: u, http: hc}, nil
}

func (c *Client) BaseURL() *url.URL  { return c.baseURL }
func (c *Client) Secret() string     { return c.secret }
func (c *Client) HTTP() *http.Client { return c.http }
