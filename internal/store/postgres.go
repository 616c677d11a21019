package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to PostgreSQL using the supplied connection string.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection on startup.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases database resources.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// EnsureSchema creates the monitors table when migrations are enabled. Without
// it, a fresh database surfaces ErrStoreNotInitialized until the first write.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS threat_intel_monitors (
    id           TEXT PRIMARY KEY,
    owner        TEXT NOT NULL,
    monitor_type TEXT NOT NULL,
    version      BIGINT NOT NULL,
    seq_no       BIGINT NOT NULL,
    primary_term BIGINT NOT NULL,
    document     JSONB NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS threat_intel_monitors_owner_type
    ON threat_intel_monitors (owner, monitor_type);
`
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure monitor schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) SearchIDs(ctx context.Context, filter Filter) ([]string, error) {
	const query = `
SELECT id
  FROM threat_intel_monitors
 WHERE owner = $1 AND monitor_type = $2
 ORDER BY updated_at;
`
	rows, err := p.pool.Query(ctx, query, filter.Owner, filter.MonitorType)
	if err != nil {
		return nil, classifyPgError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	const query = `
SELECT id, owner, monitor_type, version, seq_no, primary_term, document, updated_at
  FROM threat_intel_monitors
 WHERE id = $1;
`
	row := p.pool.QueryRow(ctx, query, id)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Owner, &rec.MonitorType, &rec.Version,
		&rec.SeqNo, &rec.PrimaryTerm, &rec.Document, &rec.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, classifyPgError(err)
	}
	return rec, nil
}

func (p *PostgresStore) Put(ctx context.Context, rec Record) error {
	const upsert = `
INSERT INTO threat_intel_monitors (
    id, owner, monitor_type, version, seq_no, primary_term, document, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (id) DO UPDATE SET
    owner = EXCLUDED.owner,
    monitor_type = EXCLUDED.monitor_type,
    version = EXCLUDED.version,
    seq_no = EXCLUDED.seq_no,
    primary_term = EXCLUDED.primary_term,
    document = EXCLUDED.document,
    updated_at = NOW();
`
	_, err := p.pool.Exec(ctx, upsert,
		rec.ID,
		rec.Owner,
		rec.MonitorType,
		rec.Version,
		rec.SeqNo,
		rec.PrimaryTerm,
		rec.Document,
	)
	if err != nil {
		return classifyPgError(err)
	}
	return nil
}

// classifyPgError maps a missing monitors table onto the structured
// ErrStoreNotInitialized sentinel so callers do not have to match on
// driver-specific error text.
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %s", ErrStoreNotInitialized, pgErr.Message)
	}
	return err
}
