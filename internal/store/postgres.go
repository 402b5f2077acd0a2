package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/watchtower/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Tests substitute a
// pgxmock pool through the same interface.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// the hot path of the watch loop.
var preparedStatements = map[string]string{
	"insert_cycle":      `INSERT INTO cycles (id, phase, composite, confidence, phase_changed, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"latest_cycle":      `SELECT result FROM cycles ORDER BY created_at DESC, id DESC LIMIT 1`,
	"insert_transition": `INSERT INTO transitions (id, from_phase, to_phase, direction, at) VALUES ($1, $2, $3, $4, $5)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cycles (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	phase         DOUBLE PRECISION NOT NULL,
	composite     DOUBLE PRECISION NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL,
	phase_changed BOOLEAN NOT NULL DEFAULT false,
	result        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transitions (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	from_phase DOUBLE PRECISION NOT NULL,
	to_phase   DOUBLE PRECISION NOT NULL,
	direction  TEXT NOT NULL,
	at         TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_created_at ON cycles(created_at);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveCycle(ctx context.Context, result *model.CycleResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal cycle")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO cycles (id, phase, composite, confidence, phase_changed, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		result.ID, result.Phase.Phase, result.HOPI.Composite, result.HOPI.Confidence,
		result.PhaseChanged, resultJSON, result.Timestamp.UTC(),
	)
	return eris.Wrap(err, "postgres: insert cycle")
}

func (s *PostgresStore) LatestCycle(ctx context.Context) (*model.CycleResult, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM cycles ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: latest cycle")
	}

	var cr model.CycleResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cycle")
	}
	return &cr, nil
}

func (s *PostgresStore) ListCycles(ctx context.Context, limit int) ([]model.CycleResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT result FROM cycles ORDER BY created_at DESC, id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cycles")
	}
	defer rows.Close()

	var results []model.CycleResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cycle")
		}
		var cr model.CycleResult
		if err := json.Unmarshal(raw, &cr); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal cycle")
		}
		results = append(results, cr)
	}
	return results, eris.Wrap(rows.Err(), "postgres: list cycles iterate")
}

func (s *PostgresStore) SaveTransition(ctx context.Context, tr model.Transition) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transitions (id, from_phase, to_phase, direction, at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), tr.From, tr.To, string(tr.Direction), tr.At.UTC(),
	)
	return eris.Wrap(err, "postgres: insert transition")
}

func (s *PostgresStore) ListTransitions(ctx context.Context, since time.Time) ([]model.Transition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT from_phase, to_phase, direction, at FROM transitions WHERE at >= $1 ORDER BY at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list transitions")
	}
	defer rows.Close()

	var out []model.Transition
	for rows.Next() {
		var tr model.Transition
		var dir string
		if err := rows.Scan(&tr.From, &tr.To, &dir, &tr.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan transition")
		}
		tr.Direction = model.TransitionDirection(dir)
		out = append(out, tr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list transitions iterate")
}
