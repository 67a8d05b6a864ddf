package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/chart-service/internal/model"
	"github.com/fleveque/chart-service/internal/storage"
	"github.com/fleveque/chart-service/internal/upstream"
)

// stubFetcher stands in for the upstream client. It stages a real temp file
// so the commit path exercises the same Bytes/Discard handoff as production.
type stubFetcher struct {
	dir     string
	payload []byte
	err     error
	calls   atomic.Int32

	// When set, Fetch signals started and blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context, symbol string) (*upstream.Result, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}

	staged, err := os.CreateTemp(f.dir, symbol+"-*.png")
	if err != nil {
		return nil, err
	}
	if _, err := staged.Write(f.payload); err != nil {
		staged.Close()
		return nil, err
	}
	if err := staged.Close(); err != nil {
		return nil, err
	}

	return &upstream.Result{
		Symbol:     symbol,
		Filename:   model.StorageKey(symbol),
		StagedPath: staged.Name(),
	}, nil
}

func setupService(t *testing.T, fetcher *stubFetcher) (*ChartService, storage.ChartStore) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating file store: %v", err)
	}
	if fetcher.dir == "" {
		fetcher.dir = t.TempDir()
	}

	svc := NewChartService(store, fetcher, FreshnessPolicy{TTL: 24 * time.Hour}, zap.NewNop())
	return svc, store
}

func TestChartService_GetOrFetch_MissThenHit(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte("chart-bytes")}
	svc, _ := setupService(t, fetcher)
	ctx := context.Background()

	chart, err := svc.GetOrFetch(ctx, "MSFT")
	if err != nil {
		t.Fatalf("first GetOrFetch: %v", err)
	}
	if string(chart.Image) != "chart-bytes" {
		t.Errorf("expected fetched bytes, got %q", chart.Image)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected exactly one fetch, got %d", got)
	}

	// Immediate second call is a cache hit: zero additional fetches.
	if _, err := svc.GetOrFetch(ctx, "MSFT"); err != nil {
		t.Fatalf("second GetOrFetch: %v", err)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected cached hit with no fetch, got %d fetches", got)
	}
}

func TestChartService_GetOrFetch_StaleRefetch(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte("new")}
	svc, store := setupService(t, fetcher)
	ctx := context.Background()

	if _, err := store.Put(ctx, "AAPL", []byte("old")); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	// Move the service clock past the TTL so the seeded chart is stale.
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	chart, err := svc.GetOrFetch(ctx, "AAPL")
	if err != nil {
		t.Fatalf("GetOrFetch: %v", err)
	}
	if string(chart.Image) != "new" {
		t.Errorf("expected refetched bytes, got %q", chart.Image)
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected one refetch, got %d", got)
	}
}

// A fetch failure surfaces even when a stale copy exists — stale data is
// never served silently.
func TestChartService_GetOrFetch_FailureBeatsStale(t *testing.T) {
	fetcher := &stubFetcher{err: upstream.ErrUnavailable}
	svc, store := setupService(t, fetcher)
	ctx := context.Background()

	if _, err := store.Put(ctx, "AAPL", []byte("stale")); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err := svc.GetOrFetch(ctx, "AAPL")
	if !errors.Is(err, upstream.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	// The stale copy is still retrievable explicitly.
	chart, err := store.Get(ctx, "AAPL")
	if err != nil {
		t.Fatalf("stale chart should remain committed: %v", err)
	}
	if string(chart.Image) != "stale" {
		t.Errorf("stale bytes corrupted: %q", chart.Image)
	}
}

func TestChartService_GetOrFetch_InvalidSymbol(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte("x")}
	svc, _ := setupService(t, fetcher)

	_, err := svc.GetOrFetch(context.Background(), "BAD$")
	if !errors.Is(err, model.ErrInvalidSymbol) {
		t.Fatalf("expected ErrInvalidSymbol, got %v", err)
	}
	if got := fetcher.calls.Load(); got != 0 {
		t.Errorf("invalid symbol must not reach the fetcher, got %d fetches", got)
	}
}

// Batch processing yields one outcome per input in input order and does not
// short-circuit on a failure in the middle.
func TestChartService_FetchBatch_NoShortCircuit(t *testing.T) {
	fetcher := &stubFetcher{payload: []byte("chart")}
	svc, _ := setupService(t, fetcher)

	outcomes := svc.FetchBatch(context.Background(), []string{"AAPL", "BAD$", "MSFT"})
	if len(outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(outcomes))
	}

	if !outcomes[0].OK || outcomes[0].Symbol != "AAPL" {
		t.Errorf("outcome 0: expected AAPL success, got %+v", outcomes[0])
	}
	if outcomes[0].Committed != model.PutInserted {
		t.Errorf("outcome 0: expected inserted, got %q", outcomes[0].Committed)
	}

	if outcomes[1].OK || outcomes[1].Symbol != "BAD$" {
		t.Errorf("outcome 1: expected BAD$ failure, got %+v", outcomes[1])
	}
	if outcomes[1].Error == "" {
		t.Error("outcome 1: expected a failure reason")
	}

	if !outcomes[2].OK || outcomes[2].Symbol != "MSFT" {
		t.Errorf("outcome 2: expected MSFT success, got %+v", outcomes[2])
	}

	if got := fetcher.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches (invalid symbol skipped), got %d", got)
	}
}

// Concurrent misses on the same symbol share a single upstream fetch.
func TestChartService_GetOrFetch_SingleFlight(t *testing.T) {
	fetcher := &stubFetcher{
		payload: []byte("chart"),
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
	}
	svc, _ := setupService(t, fetcher)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = svc.GetOrFetch(ctx, "NVDA")
	}()

	// Wait until the first fetch is in flight, then race a second caller
	// against it.
	<-fetcher.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = svc.GetOrFetch(ctx, "NVDA")
	}()

	// Give the second caller time to join the in-flight group, then let
	// the fetch complete.
	time.Sleep(100 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("caller %d: %v", i, err)
		}
	}
	if got := fetcher.calls.Load(); got != 1 {
		t.Errorf("expected one shared fetch, got %d", got)
	}
}
