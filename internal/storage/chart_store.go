package storage

import (
	"context"
	"errors"

	"github.com/fleveque/chart-service/internal/model"
)

// ErrNotFound is returned when no chart exists for a symbol.
// Go uses sentinel errors (predefined error values) instead of exception
// types; callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("chart not found")

// ErrBackendUnavailable is returned by surfaces that need the relational
// backend when the service is running in degraded mode (no database
// configured, or it failed to open at startup). Degraded mode keeps the
// file backend working instead of crashing the process.
var ErrBackendUnavailable = errors.New("chart database unavailable")

// ChartStore is the persistence capability for cached charts. Two
// implementations exist: a SQLite blob table and a directory of PNG files.
// Both obey the same contract so the cache orchestrator is backend-agnostic:
//
//   - Put is an upsert, logically atomic per symbol: no reader ever observes
//     a partially written chart, and updated_at is refreshed on every put.
//   - Exactly one chart exists per symbol (primary-key / filename
//     uniqueness).
//   - List returns metadata only, ordered by symbol ascending.
//   - Remove exists for cleanup of invalid uploads, not the normal flow.
type ChartStore interface {
	Get(ctx context.Context, symbol string) (*model.Chart, error)
	Put(ctx context.Context, symbol string, image []byte) (model.PutResult, error)
	Exists(ctx context.Context, symbol string) (bool, error)
	List(ctx context.Context) ([]model.ChartInfo, error)
	Remove(ctx context.Context, symbol string) error
}
