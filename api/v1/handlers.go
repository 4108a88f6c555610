package v1

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/razeware/offliner/internal/content"
	"github.com/razeware/offliner/internal/data"
	"github.com/razeware/offliner/internal/service"
)

// DownloadHandler exposes the orchestrator over HTTP.
type DownloadHandler struct {
	l   *slog.Logger
	svc service.Orchestrator
}

func NewDownloadHandler(l *slog.Logger, svc service.Orchestrator) *DownloadHandler {
	return &DownloadHandler{l: l, svc: svc}
}

type patchBody struct {
	Action string `json:"action"`
}

type removeBody struct {
	ContentID string `json:"contentId,omitempty"`
	EpisodeID string `json:"episodeId,omitempty"`
}

func (dh *DownloadHandler) GetDownloads(w http.ResponseWriter, r *http.Request) {
	dls, err := dh.svc.List(r.Context())
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to list downloads", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := dls.ToJSON(w); err != nil {
		markErr(w, err)
	}
}

func (dh *DownloadHandler) GetDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	dl, err := dh.svc.Get(r.Context(), id)
	if err != nil {
		markErr(w, err)
		if errors.Is(err, data.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to get download", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = dl.ToJSON(w)
}

func (dh *DownloadHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := dh.svc.CollectionStatus(r.Context(), id)
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to derive collection status", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, st)
}

// RequestDownload enqueues a download request; the work itself happens
// asynchronously, so success is 202.
func (dh *DownloadHandler) RequestDownload(w http.ResponseWriter, r *http.Request) {
	var req data.DownloadRequest
	if err := decodeJSONStrict(w, r, &req, 1<<20, "application/json"); err != nil {
		markErr(w, err)
		status := http.StatusBadRequest
		if errors.Is(err, ErrContentType) {
			status = http.StatusUnsupportedMediaType
		}
		http.Error(w, err.Error(), status)
		return
	}
	if req.ContentID == "" {
		markErr(w, ErrContentID)
		http.Error(w, ErrContentID.Error(), http.StatusBadRequest)
		return
	}

	if err := dh.svc.Request(r.Context(), req); err != nil {
		markErr(w, err)
		switch {
		case errors.Is(err, data.ErrNotFound), errors.Is(err, content.ErrNotFound):
			http.Error(w, "unknown content", http.StatusNotFound)
		case errors.Is(err, data.ErrNotDownloadable):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, content.ErrAuth), errors.Is(err, data.ErrNotEntitled):
			http.Error(w, "not entitled", http.StatusForbidden)
		default:
			http.Error(w, "failed to queue download", http.StatusBadGateway)
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// UpdateDownload toggles a single row between paused and in progress.
func (dh *DownloadHandler) UpdateDownload(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body patchBody
	if err := decodeJSONStrict(w, r, &body, 1<<20, "application/json"); err != nil {
		markErr(w, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch body.Action {
	case "pause":
		err = dh.svc.Pause(r.Context(), id)
	case "resume":
		err = dh.svc.Resume(r.Context(), id)
	default:
		markErr(w, ErrAction)
		http.Error(w, ErrAction.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		markErr(w, err)
		switch {
		case errors.Is(err, data.ErrNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, data.ErrBadState):
			http.Error(w, "download is not in a pausable/resumable state", http.StatusConflict)
		default:
			http.Error(w, "failed to update download", http.StatusInternalServerError)
		}
		return
	}

	dl, err := dh.svc.Get(r.Context(), id)
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to get download", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = dl.ToJSON(w)
}

// RemoveDownloads deletes a scope, or everything when the body is empty.
func (dh *DownloadHandler) RemoveDownloads(w http.ResponseWriter, r *http.Request) {
	var body removeBody
	if err := decodeJSONStrict(w, r, &body, 1<<20, "application/json"); err != nil && !errors.Is(err, io.EOF) {
		markErr(w, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	if body.ContentID == "" && body.EpisodeID == "" {
		err = dh.svc.RemoveAll(r.Context())
	} else {
		err = dh.svc.Remove(r.Context(), body.ContentID, body.EpisodeID)
	}
	if err != nil {
		markErr(w, err)
		http.Error(w, "failed to remove downloads", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
