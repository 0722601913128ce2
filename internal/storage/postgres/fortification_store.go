// Package postgres mirrors the final fortification dataset into Postgres.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pjpmarques/Castelos/internal/fortification"
)

const defaultTable = "fortifications"

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the dataset.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
	// RunID is recorded on every upserted row.
	RunID string
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Begin(context.Context) (pgx.Tx, error)
	Close()
}

// FortificationStore upserts rows keyed by their Wikipedia link.
type FortificationStore struct {
	pool  pool
	table string
	runID string
}

// New creates a Postgres-backed FortificationStore using the provided config.
func New(ctx context.Context, cfg Config) (*FortificationStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &FortificationStore{pool: p, table: table, runID: cfg.RunID}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table, runID string) (*FortificationStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &FortificationStore{pool: p, table: name, runID: runID}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *FortificationStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the dataset table when it does not exist yet.
func (s *FortificationStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	wikipedia_link   TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	latitude         DOUBLE PRECISION NOT NULL,
	longitude        DOUBLE PRECISION NOT NULL,
	google_maps_link TEXT NOT NULL,
	run_id           TEXT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// StoreRows upserts every row in a single transaction.
func (s *FortificationStore) StoreRows(ctx context.Context, rows []fortification.Row) error {
	if s == nil || s.pool == nil {
		return errors.New("fortification store is not configured")
	}
	if len(rows) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
INSERT INTO %s (wikipedia_link, name, latitude, longitude, google_maps_link, run_id, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,now())
ON CONFLICT (wikipedia_link) DO UPDATE SET
	name = EXCLUDED.name,
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	google_maps_link = EXCLUDED.google_maps_link,
	run_id = EXCLUDED.run_id,
	updated_at = EXCLUDED.updated_at`, s.table)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	for _, row := range rows {
		if err := s.upsert(ctx, tx, query, row); err != nil {
			return errors.Join(err, rollback(ctx, tx))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (s *FortificationStore) upsert(ctx context.Context, tx pgx.Tx, query string, row fortification.Row) error {
	lat, err := strconv.ParseFloat(row.Latitude, 64)
	if err != nil {
		return fmt.Errorf("row %s latitude: %w", row.Reference, err)
	}
	lon, err := strconv.ParseFloat(row.Longitude, 64)
	if err != nil {
		return fmt.Errorf("row %s longitude: %w", row.Reference, err)
	}
	if _, err := tx.Exec(ctx, query, row.Reference, row.Name, lat, lon, row.MapLink, s.runID); err != nil {
		return fmt.Errorf("upsert %s: %w", row.Reference, err)
	}
	return nil
}

func rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback upsert: %w", err)
	}
	return nil
}
