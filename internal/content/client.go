// Package content talks to the content repository: tutorial metadata,
// playable URL resolution, and the entitlement endpoint.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/razeware/offliner/internal/data"
)

var (
	// ErrAuth covers 401/403 responses. The entitlement verifier treats it
	// the same as any other failure (fail-closed), but admission maps it to
	// a distinct failure reason.
	ErrAuth = errors.New("content api: not authorized")
	// ErrNotFound means the id is unknown to the repository.
	ErrNotFound = errors.New("content api: not found")
)

// PermissionDownload is the tag the permission endpoint returns for accounts
// entitled to offline viewing.
const PermissionDownload = "download-videos"

type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

// NewClientFromEnv reads CONTENT_API_URL, CONTENT_API_TOKEN and
// CONTENT_TIMEOUT_MS.
func NewClientFromEnv() (*Client, error) {
	ms := 10000
	if v := os.Getenv("CONTENT_TIMEOUT_MS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ms = parsed
		}
	}

	rawURL := os.Getenv("CONTENT_API_URL")
	if rawURL == "" {
		rawURL = "http://127.0.0.1:4000/api"
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: baseURL,
		token:   os.Getenv("CONTENT_API_TOKEN"),
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
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: u, http: hc}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := *c.baseURL
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("content api http %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Detail fetches the full tree for a content id.
func (c *Client) Detail(ctx context.Context, id string) (*data.Content, error) {
	var body struct {
		Content data.Content `json:"content"`
	}
	if err := c.get(ctx, "contents/"+id, nil, &body); err != nil {
		return nil, err
	}
	return &body.Content, nil
}

// ResolveURL asks for a playable transfer URL for a video at the given
// quality.
func (c *Client) ResolveURL(ctx context.Context, videoID string, q data.Quality) (string, error) {
	var body struct {
		URL string `json:"url"`
	}
	qv := url.Values{}
	qv.Set("quality", string(q))
	if err := c.get(ctx, "videos/"+videoID+"/download", qv, &body); err != nil {
		return "", err
	}
	if body.URL == "" {
		return "", fmt.Errorf("content api: empty url for video %s", videoID)
	}
	return body.URL, nil
}

// Permissions returns the account's permission tags.
func (c *Client) Permissions(ctx context.Context) ([]string, error) {
	var body struct {
		Permissions []string `json:"permissions"`
	}
	if err := c.get(ctx, "permissions", nil, &body); err != nil {
		return nil, err
	}
	return body.Permissions, nil
}
