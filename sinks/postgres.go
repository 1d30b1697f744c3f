// Package sinks holds the optional post-publish mirrors.
package sinks

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/InfiniteXqz/roblox-rap-updater/pipeline"
)

// ArchiveTable is the snapshot table inside the configured schema.
const ArchiveTable = "rap_snapshots"

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// OpenPool opens a pgx pool. viaBouncer switches to the simple protocol so
// the pool works behind a transaction-mode pgbouncer.
func OpenPool(ctx context.Context, dsn string, maxConns int, viaBouncer bool) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse PG_DSN: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns) //nolint:gosec
	if viaBouncer {
		cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// PostgresArchive appends every published snapshot to an archive table.
// Rows are keyed by digest, so re-publishing identical bytes is a no-op.
type PostgresArchive struct {
	db    execer
	table string
}

var _ pipeline.Mirror = (*PostgresArchive)(nil)

func NewPostgresArchive(db execer, schema string) (*PostgresArchive, error) {
	if db == nil {
		return nil, errors.New("postgres handle is required")
	}
	if schema == "" {
		schema = "public"
	}
	return &PostgresArchive{
		db:    db,
		table: pgx.Identifier{schema, ArchiveTable}.Sanitize(),
	}, nil
}

func (a *PostgresArchive) Name() string { return "postgres" }

// EnsureSchema creates the archive table when it does not exist yet.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	_, err := a.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+a.table+` (
		digest      text PRIMARY KEY,
		store       text NOT NULL,
		entry_key   text NOT NULL,
		items       integer NOT NULL,
		updated_at  timestamptz NOT NULL,
		body        jsonb NOT NULL,
		archived_at timestamptz NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", a.table, err)
	}
	return nil
}

func (a *PostgresArchive) Mirror(ctx context.Context, rec pipeline.Record) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO `+a.table+`
		(digest, store, entry_key, items, updated_at, body)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (digest) DO NOTHING`,
		rec.Digest, rec.Store, rec.Key, rec.Items, rec.UpdatedAt, string(rec.Body),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
