// Package settings persists user preferences and the cached download
// entitlement flag. Values survive restarts; the entitlement flag is the
// fail-closed cache refreshed by the periodic verifier.
package settings

import (
	"context"
	"sync"

	"github.com/razeware/offliner/internal/data"
)

type Store interface {
	Quality(ctx context.Context) (data.Quality, error)
	SetQuality(ctx context.Context, q data.Quality) error
	WifiOnly(ctx context.Context) (bool, error)
	SetWifiOnly(ctx context.Context, v bool) error
	DownloadsAllowed(ctx context.Context) (bool, error)
	SetDownloadsAllowed(ctx context.Context, v bool) error
}

const (
	keyQuality          = "quality"
	keyWifiOnly         = "wifi_only"
	keyDownloadsAllowed = "downloads_allowed"
)

// InMemoryStore holds settings in a map. Downloads start disallowed until
// entitlement has been verified once.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: map[string]string{
		keyQuality: string(data.QualityHD),
	}}
}

func (s *InMemoryStore) get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *InMemoryStore) set(key, val string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = val
}

func (s *InMemoryStore) Quality(ctx context.Context) (data.Quality, error) {
	if q := data.Quality(s.get(keyQuality)); q == data.QualitySD {
		return data.QualitySD, nil
	}
	return data.QualityHD, nil
}

func (s *InMemoryStore) SetQuality(ctx context.Context, q data.Quality) error {
	s.set(keyQuality, string(q))
	return nil
}

func (s *InMemoryStore) WifiOnly(ctx context.Context) (bool, error) {
	return s.get(keyWifiOnly) == "true", nil
}

func (s *InMemoryStore) SetWifiOnly(ctx context.Context, v bool) error {
	s.set(keyWifiOnly, boolString(v))
	return nil
}

func (s *InMemoryStore) DownloadsAllowed(ctx context.Context) (bool, error) {
	return s.get(keyDownloadsAllowed) == "true", nil
}

func (s *InMemoryStore) SetDownloadsAllowed(ctx context.Context, v bool) error {
	s.set(keyDownloadsAllowed, boolString(v))
	return nil
}

func boolString(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
