package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiffu/listingwatch/lib"
	"github.com/fiffu/listingwatch/lib/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps objects in a Postgres table through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool. Call EnsureSchema before using it.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewDB opens a pgx pool and checks that it is reachable.
func NewDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	// One invocation holds at most one connection at a time.
	cfg.MaxConns = 4
	cfg.MinConns = 1
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the objects table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS objects (
  bucket TEXT NOT NULL,
  object_key TEXT NOT NULL,
  body BYTEA NOT NULL,
  content_type TEXT NOT NULL DEFAULT '',
  last_modified TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (bucket, object_key)
);
CREATE INDEX IF NOT EXISTS idx_objects_last_modified ON objects (bucket, last_modified);`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return &lib.StorageError{Op: "migrate", Err: err}
	}
	return nil
}

func (s *PostgresStore) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	const query = `
INSERT INTO objects (bucket, object_key, body, content_type, last_modified)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (bucket, object_key)
DO UPDATE SET
  body = EXCLUDED.body,
  content_type = EXCLUDED.content_type,
  last_modified = EXCLUDED.last_modified;
`
	if _, err := s.pool.Exec(ctx, query, bucket, key, body, contentType); err != nil {
		return &lib.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *PostgresStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	var body []byte
	err := s.pool.QueryRow(ctx,
		`SELECT body FROM objects WHERE bucket = $1 AND object_key = $2`,
		bucket, key,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &lib.StorageError{Op: "get", Key: key, Err: ErrObjectNotFound}
	} else if err != nil {
		return nil, &lib.StorageError{Op: "get", Key: key, Err: err}
	}
	return body, nil
}

func (s *PostgresStore) ListByPrefix(ctx context.Context, bucket, prefix string) (models.ObjectInfos, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT object_key, last_modified FROM objects WHERE bucket = $1 AND starts_with(object_key, $2)`,
		bucket, prefix,
	)
	if err != nil {
		return nil, &lib.StorageError{Op: "list", Key: prefix, Err: err}
	}

	infos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ObjectInfo, error) {
		var info models.ObjectInfo
		err := row.Scan(&info.Key, &info.LastModified)
		return info, err
	})
	if err != nil {
		return nil, &lib.StorageError{Op: "list", Key: prefix, Err: err}
	}
	return infos, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
