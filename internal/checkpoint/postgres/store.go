// Package postgres stores named checkpoints in a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/adfiller/internal/checkpoint"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const (
	defaultTable = "crawl_checkpoints"
	defaultName  = "revolico"
)

// Config controls the Postgres connection pool and row addressing.
type Config struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	Name            string        `mapstructure:"name"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// Store keeps one row per crawler name holding its last success id.
type Store struct {
	pool  pool
	table string
	name  string
}

// New connects to Postgres and makes sure the checkpoint table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("checkpoint.postgres.dsn is required")
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
	s, err := NewWithPool(p, cfg.Table, cfg.Name)
	if err != nil {
		p.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return s, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table, name string) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if name == "" {
		name = defaultName
	}
	return &Store{pool: p, table: table, name: name}, nil
}

// EnsureSchema creates the checkpoint table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	name TEXT PRIMARY KEY,
	last_success_id BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create checkpoint table: %w", err)
	}
	return nil
}

// Load returns the stored identifier for this crawler name.
func (s *Store) Load(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT last_success_id FROM %s WHERE name = $1`, s.table)
	var id int64
	if err := s.pool.QueryRow(ctx, query, s.name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, checkpoint.ErrNotFound
		}
		return 0, fmt.Errorf("select checkpoint: %w", err)
	}
	return id, nil
}

// Save upserts the identifier for this crawler name.
func (s *Store) Save(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`
INSERT INTO %s (name, last_success_id, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (name) DO UPDATE SET last_success_id = EXCLUDED.last_success_id, updated_at = now()`, s.table)
	if _, err := s.pool.Exec(ctx, query, s.name, id); err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}
