package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fleveque/chart-service/internal/model"
)

// setupTestRepo creates a ChartStore over a temporary SQLite database.
// t.TempDir() is cleaned up automatically after the test.
func setupTestRepo(t *testing.T) ChartStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDatabase(dbPath)
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewChartRepository(db)
}

func TestChartRepository_PutAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	image := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	result, err := repo.Put(ctx, "AAPL", image)
	if err != nil {
		t.Fatalf("putting chart: %v", err)
	}
	if result != model.PutInserted {
		t.Errorf("expected inserted, got %s", result)
	}

	got, err := repo.Get(ctx, "AAPL")
	if err != nil {
		t.Fatalf("getting chart: %v", err)
	}
	if got.Symbol != "AAPL" {
		t.Errorf("expected symbol AAPL, got %s", got.Symbol)
	}
	if string(got.Image) != string(image) {
		t.Errorf("image bytes do not round trip")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestChartRepository_Get_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	_, err := repo.Get(context.Background(), "DOESNOTEXIST")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// Upsert keeps exactly one row per symbol and the latest bytes win.
func TestChartRepository_Put_Upsert(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Put(ctx, "AAPL", []byte("first")); err != nil {
		t.Fatalf("first put: %v", err)
	}

	result, err := repo.Put(ctx, "AAPL", []byte("second"))
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if result != model.PutUpdated {
		t.Errorf("expected updated, got %s", result)
	}

	got, err := repo.Get(ctx, "AAPL")
	if err != nil {
		t.Fatalf("getting chart: %v", err)
	}
	if string(got.Image) != "second" {
		t.Errorf("expected latest bytes, got %q", got.Image)
	}

	infos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("listing charts: %v", err)
	}
	if len(infos) != 1 {
		t.Errorf("expected exactly one row for AAPL, got %d", len(infos))
	}
}

func TestChartRepository_Exists(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	exists, err := repo.Exists(ctx, "MSFT")
	if err != nil {
		t.Fatalf("exists check: %v", err)
	}
	if exists {
		t.Error("expected MSFT to be absent")
	}

	if _, err := repo.Put(ctx, "MSFT", []byte("chart")); err != nil {
		t.Fatalf("putting chart: %v", err)
	}

	exists, err = repo.Exists(ctx, "MSFT")
	if err != nil {
		t.Fatalf("exists check: %v", err)
	}
	if !exists {
		t.Error("expected MSFT to exist after put")
	}
}

func TestChartRepository_List_OrderedBySymbol(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	for _, symbol := range []string{"TSLA", "AAPL", "MSFT"} {
		if _, err := repo.Put(ctx, symbol, []byte("chart")); err != nil {
			t.Fatalf("putting %s: %v", symbol, err)
		}
	}

	infos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("listing charts: %v", err)
	}

	want := []string{"AAPL", "MSFT", "TSLA"}
	if len(infos) != len(want) {
		t.Fatalf("expected %d charts, got %d", len(want), len(infos))
	}
	for i, symbol := range want {
		if infos[i].Symbol != symbol {
			t.Errorf("position %d: expected %s, got %s", i, symbol, infos[i].Symbol)
		}
	}
}

func TestChartRepository_Remove(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Put(ctx, "GOOG", []byte("chart")); err != nil {
		t.Fatalf("putting chart: %v", err)
	}

	if err := repo.Remove(ctx, "GOOG"); err != nil {
		t.Fatalf("removing chart: %v", err)
	}

	_, err := repo.Get(ctx, "GOOG")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after remove, got %v", err)
	}
}
