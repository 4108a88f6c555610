package data

import (
	"encoding/json"
	"errors"
	"io"
	"time"
)

// Download is a persisted row in the offline queue. Rows are keyed by the
// content or episode id they belong to; a collection request produces one row
// per episode plus an anchor row for the collection itself, which is never
// handed to the transfer engine.
type Download struct {
	ID            string        `json:"id"`
	CollectionID  string        `json:"collectionId,omitempty"`
	Type          ContentType   `json:"contentType"`
	Name          string        `json:"name,omitempty"`
	VideoID       string        `json:"-"`
	URL           string        `json:"-"`
	Progress      int           `json:"progress"`
	State         DownloadState `json:"state"`
	FailureReason FailureReason `json:"failureReason,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

type Downloads []*Download

// DownloadState tracks where a row sits in its lifecycle.
type DownloadState string

const (
	StateNone       DownloadState = ""
	StateCreated    DownloadState = "Created"
	StateInProgress DownloadState = "InProgress"
	StatePaused     DownloadState = "Paused"
	StateCompleted  DownloadState = "Completed"
	StateFailed     DownloadState = "Failed"
)

// Valid reports whether s is a known state.
func (s DownloadState) Valid() bool {
	switch s {
	case StateNone, StateCreated, StateInProgress, StatePaused, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether the engine will not move the row past s on its own.
func (s DownloadState) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// FailureReason classifies why a row ended up Failed.
type FailureReason string

const (
	FailureNone    FailureReason = ""
	FailureNetwork FailureReason = "Network"
	FailureAuth    FailureReason = "Auth"
	FailureStorage FailureReason = "Storage"
	FailureOther   FailureReason = "Other"
)

// Quality is the user's preferred transfer quality.
type Quality string

const (
	QualityHD Quality = "hd"
	QualitySD Quality = "sd"
)

var (
	ErrNotFound        = errors.New("download not found")
	ErrBadState        = errors.New("invalid download state")
	ErrMissingContent  = errors.New("contentId is required")
	ErrNotDownloadable = errors.New("content type is not downloadable")
	ErrNotEntitled     = errors.New("account is not entitled to downloads")
)

func (d *Download) Clone() *Download {
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

func (d Downloads) Clone() Downloads {
	out := make(Downloads, 0, len(d))
	for _, dl := range d {
		out = append(out, dl.Clone())
	}
	return out
}

func (d *Downloads) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(d) }

func (d *Download) ToJSON(w io.Writer) error { return json.NewEncoder(w).Encode(d) }

func (d *Download) FromJSON(r io.Reader) error { return json.NewDecoder(r).Decode(d) }
