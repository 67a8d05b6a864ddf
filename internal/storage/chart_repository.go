package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/chart-service/internal/model"
)

// sqliteChartStore is the SQLite implementation of ChartStore.
// The struct is unexported — only the interface is public. This is a common
// Go pattern: export the interface, hide the implementation.
type sqliteChartStore struct {
	db *sqlx.DB
}

// NewChartRepository creates a SQLite-backed ChartStore.
func NewChartRepository(db *sqlx.DB) ChartStore {
	return &sqliteChartStore{db: db}
}

func (r *sqliteChartStore) Get(ctx context.Context, symbol string) (*model.Chart, error) {
	var chart model.Chart
	err := r.db.GetContext(ctx, &chart, "SELECT * FROM charts WHERE symbol = ?", symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting chart for %s: %w", symbol, err)
	}
	return &chart, nil
}

// Put upserts the chart bytes for a symbol. The existence check and the
// write run inside one transaction so the inserted/updated distinction is
// exact and no reader observes a half-written row.
func (r *sqliteChartStore) Put(ctx context.Context, symbol string, image []byte) (model.PutResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning put transaction: %w", err)
	}
	// Rollback is a no-op after Commit — keeps every exit path covered.
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM charts WHERE symbol = ?)", symbol); err != nil {
		return "", fmt.Errorf("checking chart existence for %s: %w", symbol, err)
	}

	result := model.PutInserted
	if exists {
		result = model.PutUpdated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO charts (symbol, image)
		VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			image = excluded.image,
			updated_at = CURRENT_TIMESTAMP
	`, symbol, image)
	if err != nil {
		return "", fmt.Errorf("putting chart for %s: %w", symbol, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing chart for %s: %w", symbol, err)
	}
	return result, nil
}

func (r *sqliteChartStore) Exists(ctx context.Context, symbol string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM charts WHERE symbol = ?)", symbol)
	if err != nil {
		return false, fmt.Errorf("checking chart existence for %s: %w", symbol, err)
	}
	return exists, nil
}

func (r *sqliteChartStore) List(ctx context.Context) ([]model.ChartInfo, error) {
	var infos []model.ChartInfo
	err := r.db.SelectContext(ctx, &infos,
		"SELECT symbol, created_at, updated_at FROM charts ORDER BY symbol ASC")
	if err != nil {
		return nil, fmt.Errorf("listing charts: %w", err)
	}
	return infos, nil
}

func (r *sqliteChartStore) Remove(ctx context.Context, symbol string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM charts WHERE symbol = ?", symbol)
	if err != nil {
		return fmt.Errorf("removing chart for %s: %w", symbol, err)
	}
	return nil
}
