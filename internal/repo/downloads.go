package repo

import (
	"context"

	"github.com/razeware/offliner/internal/data"
)

type DownloadRepo interface {
	DownloadReader
	DownloadWriter
}

type DownloadReader interface {
	List(ctx context.Context) (data.Downloads, error)
	Get(ctx context.Context, id string) (*data.Download, error)
	// ListByState returns up to limit rows in the given state whose content
	// type is downloadable, ordered by creation time ascending.
	ListByState(ctx context.Context, state data.DownloadState, limit int) (data.Downloads, error)
	// ListByCollection returns every row whose CollectionID matches id,
	// including the collection's own anchor row.
	ListByCollection(ctx context.Context, id string) (data.Downloads, error)
}

type DownloadWriter interface {
	// Add inserts the row if no row with the same id exists. It returns the
	// stored row and whether an insert happened; an existing row is returned
	// untouched.
	Add(ctx context.Context, download *data.Download) (*data.Download, bool, error)
	Update(ctx context.Context, id string, mutate func(*data.Download) error) (*data.Download, error)
	SetState(ctx context.Context, id string, state data.DownloadState) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}
