package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/watchtower/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cycles (
	id            TEXT PRIMARY KEY,
	phase         REAL NOT NULL,
	composite     REAL NOT NULL,
	confidence    REAL NOT NULL,
	phase_changed INTEGER NOT NULL DEFAULT 0,
	result        TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS transitions (
	id         TEXT PRIMARY KEY,
	from_phase REAL NOT NULL,
	to_phase   REAL NOT NULL,
	direction  TEXT NOT NULL,
	at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cycles_created_at ON cycles(created_at);
CREATE INDEX IF NOT EXISTS idx_transitions_at ON transitions(at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveCycle(ctx context.Context, result *model.CycleResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal cycle")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO cycles (id, phase, composite, confidence, phase_changed, result, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.Phase.Phase, result.HOPI.Composite, result.HOPI.Confidence,
		boolToInt(result.PhaseChanged), string(resultJSON), result.Timestamp.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert cycle")
}

func (s *SQLiteStore) LatestCycle(ctx context.Context) (*model.CycleResult, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT result FROM cycles ORDER BY created_at DESC, id DESC LIMIT 1`,
	)
	return scanCycleJSON(row)
}

func (s *SQLiteStore) ListCycles(ctx context.Context, limit int) ([]model.CycleResult, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT result FROM cycles ORDER BY created_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cycles")
	}
	defer rows.Close() //nolint:errcheck

	var results []model.CycleResult
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cycle")
		}
		var cr model.CycleResult
		if err := json.Unmarshal([]byte(raw), &cr); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal cycle")
		}
		results = append(results, cr)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: iterate cycles")
}

func (s *SQLiteStore) SaveTransition(ctx context.Context, tr model.Transition) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (id, from_phase, to_phase, direction, at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), tr.From, tr.To, string(tr.Direction), tr.At.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert transition")
}

func (s *SQLiteStore) ListTransitions(ctx context.Context, since time.Time) ([]model.Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT from_phase, to_phase, direction, at FROM transitions WHERE at >= ? ORDER BY at ASC`,
		since.UTC(),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list transitions")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Transition
	for rows.Next() {
		var tr model.Transition
		var dir string
		if err := rows.Scan(&tr.From, &tr.To, &dir, &tr.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan transition")
		}
		tr.Direction = model.TransitionDirection(dir)
		out = append(out, tr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate transitions")
}

// scanCycleJSON decodes a single-result row holding the cycle JSON.
func scanCycleJSON(row *sql.Row) (*model.CycleResult, error) {
	var raw string
	if err := row.Scan(&raw); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "sqlite: scan cycle")
	}
	var cr model.CycleResult
	if err := json.Unmarshal([]byte(raw), &cr); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cycle")
	}
	return &cr, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
