// Package store persists cycle results and phase transitions so the
// phase machine can be reseeded across restarts and history queries can
// reach further back than the in-memory rings.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/watchtower/internal/config"
	"github.com/sells-group/watchtower/internal/model"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for evaluation output.
type Store interface {
	// Cycles
	SaveCycle(ctx context.Context, result *model.CycleResult) error
	LatestCycle(ctx context.Context) (*model.CycleResult, error)
	ListCycles(ctx context.Context, limit int) ([]model.CycleResult, error)

	// Transitions
	SaveTransition(ctx context.Context, tr model.Transition) error
	ListTransitions(ctx context.Context, since time.Time) ([]model.Transition, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
