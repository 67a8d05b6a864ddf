// Package service contains the core business logic: the fetch-on-miss
// cache. ChartService composes the pieces:
//
//	check store → fresh? serve cached bytes : fetch upstream → commit → serve
//
// The service is written against the ChartStore interface only, so the same
// orchestration runs over the SQLite backend (API path) and the file backend
// (static path).
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fleveque/chart-service/internal/model"
	"github.com/fleveque/chart-service/internal/storage"
	"github.com/fleveque/chart-service/internal/upstream"
)

// ChartService is the cache orchestrator. It never touches stored bytes
// directly — all mutation goes through the store's Put, and staged fetch
// bytes stay owned by the upstream client until commit.
type ChartService struct {
	store   storage.ChartStore
	fetcher upstream.Fetcher
	policy  FreshnessPolicy
	logger  *zap.Logger

	// group collapses concurrent misses on the same symbol into a single
	// upstream fetch. Without it, two requests racing between the
	// freshness check and the commit would both hit the provider.
	group singleflight.Group

	// now is swappable for tests.
	now func() time.Time
}

// NewChartService wires the orchestrator. The store decides which backend
// this service caches into.
func NewChartService(store storage.ChartStore, fetcher upstream.Fetcher, policy FreshnessPolicy, logger *zap.Logger) *ChartService {
	if policy.TTL <= 0 {
		policy.TTL = DefaultTTL
	}
	return &ChartService{
		store:   store,
		fetcher: fetcher,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the cached chart for a symbol without ever fetching.
// Absent charts surface storage.ErrNotFound.
func (s *ChartService) Get(ctx context.Context, rawSymbol string) (*model.Chart, error) {
	symbol, err := model.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, symbol)
}

// List returns metadata for every cached chart, ordered by symbol.
func (s *ChartService) List(ctx context.Context) ([]model.ChartInfo, error) {
	return s.store.List(ctx)
}

// GetOrFetch returns a fresh chart for the symbol, fetching from the
// upstream provider when the cache misses or the cached copy is stale.
// A fetch failure is surfaced even when a stale copy exists — serving stale
// data silently would make the freshness guarantee meaningless; callers
// that want stale bytes can ask for them explicitly via Get.
func (s *ChartService) GetOrFetch(ctx context.Context, rawSymbol string) (*model.Chart, error) {
	chart, _, err := s.getOrFetch(ctx, rawSymbol)
	return chart, err
}

// getOrFetch additionally reports what the commit did (inserted/updated);
// an empty PutResult means the request was served from cache. The batch
// path wants that distinction, the single path doesn't.
func (s *ChartService) getOrFetch(ctx context.Context, rawSymbol string) (*model.Chart, model.PutResult, error) {
	symbol, err := model.NormalizeSymbol(rawSymbol)
	if err != nil {
		return nil, "", err
	}

	chart, err := s.store.Get(ctx, symbol)
	switch {
	case err == nil:
		if s.policy.Fresh(chart.UpdatedAt, s.now()) {
			return chart, "", nil
		}
		s.logger.Info("cached chart is stale, refetching",
			zap.String("symbol", symbol),
			zap.Time("updated_at", chart.UpdatedAt),
		)
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Info("cache miss, fetching chart", zap.String("symbol", symbol))
	default:
		return nil, "", err
	}

	type committed struct {
		chart  *model.Chart
		result model.PutResult
	}

	// Concurrent callers for the same symbol wait here and share one
	// fetch+commit instead of issuing duplicates.
	v, err, _ := s.group.Do(symbol, func() (any, error) {
		// Re-check inside the flight: a caller that lost the race to an
		// already-completed commit gets the fresh copy without fetching.
		if existing, err := s.store.Get(ctx, symbol); err == nil &&
			s.policy.Fresh(existing.UpdatedAt, s.now()) {
			return committed{chart: existing}, nil
		}

		chart, result, err := s.fetchAndCommit(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return committed{chart: chart, result: result}, nil
	})
	if err != nil {
		return nil, "", err
	}

	c := v.(committed)
	return c.chart, c.result, nil
}

// fetchAndCommit runs one upstream fetch and commits the staged bytes
// through the store. The staged file is discarded on every path — a fetch
// result never outlives the request that created it.
func (s *ChartService) fetchAndCommit(ctx context.Context, symbol string) (*model.Chart, model.PutResult, error) {
	res, err := s.fetcher.Fetch(ctx, symbol)
	if err != nil {
		return nil, "", fmt.Errorf("fetching chart for %s: %w", symbol, err)
	}
	defer res.Discard()

	data, err := res.Bytes()
	if err != nil {
		return nil, "", err
	}

	result, err := s.store.Put(ctx, symbol, data)
	if err != nil {
		return nil, "", fmt.Errorf("committing chart for %s: %w", symbol, err)
	}

	chart, err := s.store.Get(ctx, symbol)
	if err != nil {
		return nil, "", fmt.Errorf("reading back committed chart for %s: %w", symbol, err)
	}

	s.logger.Info("chart committed",
		zap.String("symbol", symbol),
		zap.String("result", string(result)),
		zap.Int("bytes", len(data)),
	)
	return chart, result, nil
}

// FetchBatch runs GetOrFetch for each symbol strictly in order and folds
// the results into one outcome per input. Sequential on purpose: it bounds
// load on the upstream provider and keeps per-item failure isolation
// simple. The fold structure is what guarantees no short-circuit — every
// element of the input produces exactly one element of the output, and a
// failure is recorded, not raised. The batch call itself never fails.
func (s *ChartService) FetchBatch(ctx context.Context, rawSymbols []string) []model.BatchOutcome {
	outcomes := make([]model.BatchOutcome, 0, len(rawSymbols))
	for _, raw := range rawSymbols {
		chart, result, err := s.getOrFetch(ctx, raw)
		if err != nil {
			outcomes = append(outcomes, model.BatchOutcome{
				Symbol: raw,
				OK:     false,
				Error:  err.Error(),
			})
			continue
		}
		outcomes = append(outcomes, model.BatchOutcome{
			Symbol:    chart.Symbol,
			OK:        true,
			Committed: result,
		})
	}
	return outcomes
}
