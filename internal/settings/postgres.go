package settings

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/razeware/offliner/internal/data"
)

// PostgresStore implements Store on a key/value table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
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
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB shares an existing connection pool, typically the
// one the download repo opened.
func NewPostgresStoreFromDB(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`)
	return err
}

func (s *PostgresStore) get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key=$1`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}

func (s *PostgresStore) set(ctx context.Context, key, val string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key,value) VALUES ($1,$2)
ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value`, key, val)
	return err
}

func (s *PostgresStore) Quality(ctx context.Context) (data.Quality, error) {
	v, err := s.get(ctx, keyQuality)
	if err != nil {
		return data.QualityHD, err
	}
	if data.Quality(v) == data.QualitySD {
		return data.QualitySD, nil
	}
	return data.QualityHD, nil
}

func (s *PostgresStore) SetQuality(ctx context.Context, q data.Quality) error {
	return s.set(ctx, keyQuality, string(q))
}

func (s *PostgresStore) WifiOnly(ctx context.Context) (bool, error) {
	v, err := s.get(ctx, keyWifiOnly)
	return v == "true", err
}

func (s *PostgresStore) SetWifiOnly(ctx context.Context, v bool) error {
	return s.set(ctx, keyWifiOnly, boolString(v))
}

func (s *PostgresStore) DownloadsAllowed(ctx context.Context) (bool, error) {
	v, err := s.get(ctx, keyDownloadsAllowed)
	return v == "true", err
}

func (s *PostgresStore) SetDownloadsAllowed(ctx context.Context, v bool) error {
	return s.set(ctx, keyDownloadsAllowed, boolString(v))
}
