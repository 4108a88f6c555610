package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/razeware/offliner/internal/data"
)

type InMemoryDownloadRepo struct {
	mu        sync.RWMutex
	downloads data.Downloads
}

func NewInMemoryDownloadRepo() *InMemoryDownloadRepo {
	return &InMemoryDownloadRepo{downloads: make(data.Downloads, 0)}
}

func (r *InMemoryDownloadRepo) List(ctx context.Context) (data.Downloads, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.downloads.Clone(), nil
}

func (r *InMemoryDownloadRepo) Get(ctx context.Context, id string) (*data.Download, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dl, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	return dl.Clone(), nil
}

func (r *InMemoryDownloadRepo) ListByState(ctx context.Context, state data.DownloadState, limit int) (data.Downloads, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out data.Downloads
	for _, d := range r.downloads {
		if d.State == state && d.Type.Downloadable() {
			out = append(out, d.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryDownloadRepo) ListByCollection(ctx context.Context, id string) (data.Downloads, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out data.Downloads
	for _, d := range r.downloads {
		if d.CollectionID == id {
			out = append(out, d.Clone())
		}
	}
	return out, nil
}

func (r *InMemoryDownloadRepo) Add(ctx context.Context, d *data.Download) (*data.Download, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, err := r.findByID(d.ID); err == nil {
		return existing.Clone(), false, nil
	}
	cp := d.Clone()
	r.downloads = append(r.downloads, cp)
	return cp.Clone(), true, nil
}

func (r *InMemoryDownloadRepo) Update(ctx context.Context, id string, mutate func(*data.Download) error) (*data.Download, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dl, err := r.findByID(id)
	if err != nil {
		return nil, err
	}
	next := dl.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}
	next.ID = dl.ID
	next.CreatedAt = dl.CreatedAt
	*dl = *next
	return dl.Clone(), nil
}

func (r *InMemoryDownloadRepo) SetState(ctx context.Context, id string, state data.DownloadState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	dl, err := r.findByID(id)
	if err != nil {
		return err
	}
	dl.State = state
	return nil
}

func (r *InMemoryDownloadRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, dl := range r.downloads {
		if dl.ID == id {
			r.downloads = append(r.downloads[:i], r.downloads[i+1:]...)
			return nil
		}
	}
	return data.ErrNotFound
}

func (r *InMemoryDownloadRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloads = r.downloads[:0]
	return nil
}

func (r *InMemoryDownloadRepo) findByID(id string) (*data.Download, error) {
	for _, dl := range r.downloads {
		if dl.ID == id {
			return dl, nil
		}
	}
	return nil, data.ErrNotFound
}
