package repo

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/razeware/offliner/internal/data"
)

// PostgresRepo implements DownloadRepo backed by PostgreSQL. Rows are keyed
// by the content/episode id, so idempotent inserts fall out of the primary
// key.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo constructs a repository using the provided DSN.
func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresRepo{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRepoFromEnv constructs a DSN using component env vars.
// Recognized envs (with defaults):
//
//	POSTGRES_HOST (postgres), POSTGRES_PORT (5432), POSTGRES_DB (offliner),
//	POSTGRES_USER (offliner), POSTGRES_PASSWORD (empty), POSTGRES_SSLMODE (disable)
func NewPostgresRepoFromEnv() (*PostgresRepo, error) {
	host := getenv("POSTGRES_HOST", "postgres")
	port := getenv("POSTGRES_PORT", "5432")
	db := getenv("POSTGRES_DB", "offliner")
	user := getenv("POSTGRES_USER", "offliner")
	pass := getenv("POSTGRES_PASSWORD", "")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := url.Values{}
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return NewPostgresRepo(u.String())
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (r *PostgresRepo) Close() error { return r.db.Close() }

// DB exposes the underlying pool so other stores can share the connection.
func (r *PostgresRepo) DB() *sql.DB { return r.db }

func (r *PostgresRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS downloads (
    id TEXT PRIMARY KEY,
    collection_id TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    video_id TEXT NOT NULL DEFAULT '',
    url TEXT NOT NULL DEFAULT '',
    progress INT NOT NULL DEFAULT 0,
    state TEXT NOT NULL,
    failure_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS downloads_state_created_idx ON downloads (state, created_at);
CREATE INDEX IF NOT EXISTS downloads_collection_idx ON downloads (collection_id);
`)
	return err
}

const downloadCols = `id,collection_id,content_type,name,video_id,url,progress,state,failure_reason,created_at`

func (r *PostgresRepo) List(ctx context.Context) (data.Downloads, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+downloadCols+` FROM downloads ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*data.Download, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+downloadCols+` FROM downloads WHERE id=$1`, id)
	dl, err := scanDownload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	return dl, nil
}

func (r *PostgresRepo) ListByState(ctx context.Context, state data.DownloadState, limit int) (data.Downloads, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+downloadCols+` FROM downloads
WHERE state=$1 AND content_type IN ($2,$3)
ORDER BY created_at ASC
LIMIT NULLIF($4, 0)`,
		string(state), string(data.TypeEpisode), string(data.TypeScreencast), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *PostgresRepo) ListByCollection(ctx context.Context, id string) (data.Downloads, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+downloadCols+` FROM downloads WHERE collection_id=$1 ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func (r *PostgresRepo) Add(ctx context.Context, d *data.Download) (*data.Download, bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO downloads (`+downloadCols+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO NOTHING`,
		d.ID, d.CollectionID, string(d.Type), d.Name, d.VideoID, d.URL, d.Progress,
		string(d.State), string(d.FailureReason), d.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	n, _ := res.RowsAffected()
	dl, err := r.Get(ctx, d.ID)
	return dl, n > 0, err
}

// Update fetches, mutates, and writes back under a row lock so concurrent
// stage writes serialize per row.
func (r *PostgresRepo) Update(ctx context.Context, id string, mutate func(*data.Download) error) (*data.Download, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `SELECT `+downloadCols+` FROM downloads WHERE id=$1 FOR UPDATE`, id)
	cur, err := scanDownload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}

	next := cur.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}

	// id and creation time are immutable
	if _, err := tx.ExecContext(ctx, `UPDATE downloads
SET collection_id=$1, content_type=$2, name=$3, video_id=$4, url=$5, progress=$6, state=$7, failure_reason=$8
WHERE id=$9`,
		next.CollectionID, string(next.Type), next.Name, next.VideoID, next.URL,
		next.Progress, string(next.State), string(next.FailureReason), id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	next.ID = cur.ID
	next.CreatedAt = cur.CreatedAt
	return next, nil
}

func (r *PostgresRepo) SetState(ctx context.Context, id string, state data.DownloadState) error {
	res, err := r.db.ExecContext(ctx, `UPDATE downloads SET state=$1 WHERE id=$2`, string(state), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM downloads WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM downloads`)
	return err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanDownload(rs rowScanner) (*data.Download, error) {
	var (
		id, coll, ctype, name, videoID, rawURL, state, reason string
		progress                                              int
		created                                               time.Time
	)
	if err := rs.Scan(&id, &coll, &ctype, &name, &videoID, &rawURL, &progress, &state, &reason, &created); err != nil {
		return nil, err
	}
	return &data.Download{
		ID:            id,
		CollectionID:  coll,
		Type:          data.ContentType(ctype),
		Name:          name,
		VideoID:       videoID,
		URL:           rawURL,
		Progress:      progress,
		State:         data.DownloadState(state),
		FailureReason: data.FailureReason(reason),
		CreatedAt:     created,
	}, nil
}

func collect(rows *sql.Rows) (data.Downloads, error) {
	var out data.Downloads
	for rows.Next() {
		dl, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dl)
	}
	return out, rows.Err()
}
