// Package etl sequences one batch run: fetch every coin's daily series,
// derive metrics, persist the price dataset, then resolve and persist coin
// metadata. All upstream calls are paced to respect the API rate limit.
package etl

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/internal/persistence"
	"cryptoetl/pkg/analytics"
	"cryptoetl/pkg/coingecko"
	"cryptoetl/pkg/journal"
	"cryptoetl/pkg/metadata"
)

// ErrNoData reports a run in which every requested coin returned an empty
// series. The run aborts rather than persisting an empty dataset.
var ErrNoData = errors.New("etl: no price data returned for any coin")

// ChartLoader pulls one coin's daily price series.
type ChartLoader interface {
	MarketChart(ctx context.Context, coinID, vsCurrency, days string) ([]coingecko.PricePoint, error)
}

// Resolver resolves coin metadata; it never fails.
type Resolver interface {
	Resolve(ctx context.Context, ids []string) []metadata.Coin
}

// PriceSink persists the price+metrics dataset.
type PriceSink interface {
	Write(rows []analytics.Row) error
	Path() string
}

// Deps bundles the collaborators a Runner needs. DB and Journal are optional.
type Deps struct {
	Charts   ChartLoader
	Resolver Resolver
	Prices   PriceSink
	Snapshot metadata.Store
	DB       *persistence.Service
	Journal  *journal.Writer
}

// Runner executes ETL runs.
type Runner struct {
	cfg  *Config
	deps Deps

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner validates dependencies and constructs a Runner.
func NewRunner(cfg *Config, deps Deps) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("etl: missing config")
	}
	if deps.Charts == nil {
		return nil, errors.New("etl: missing chart loader")
	}
	if deps.Resolver == nil {
		return nil, errors.New("etl: missing metadata resolver")
	}
	if deps.Prices == nil {
		return nil, errors.New("etl: missing price sink")
	}
	if deps.Snapshot == nil {
		return nil, errors.New("etl: missing snapshot store")
	}
	return &Runner{cfg: cfg, deps: deps, sleep: sleepCtx}, nil
}

// Run executes one batch run. It fails on a terminal fetch error, when no
// coin yields data, or when an output cannot be written; empty per-coin
// series are skipped. Database mirroring and journaling are best-effort.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	rec := &journal.RunRecord{
		VsCurrency: r.cfg.VsCurrency,
		Days:       r.cfg.Days,
		Requested:  append([]string(nil), r.cfg.Coins...),
	}
	logx.Infof("etl: starting run, coins=%v days=%s vs_currency=%s", r.cfg.Coins, r.cfg.Days, r.cfg.VsCurrency)

	var points []coingecko.PricePoint
	for _, coin := range r.cfg.Coins {
		if err := ctx.Err(); err != nil {
			return r.fail(rec, err)
		}
		logx.Infof("etl: fetching %s", coin)
		series, err := r.deps.Charts.MarketChart(ctx, coin, r.cfg.VsCurrency, r.cfg.Days)
		if err != nil {
			return r.fail(rec, fmt.Errorf("etl: fetch %s: %w", coin, err))
		}
		if len(series) == 0 {
			logx.Infof("etl: no data for %s, skipping", coin)
			rec.Skipped = append(rec.Skipped, coin)
			continue
		}
		points = append(points, series...)
		rec.Loaded = append(rec.Loaded, coin)

		if err := r.sleep(ctx, r.cfg.CoinPause); err != nil {
			return r.fail(rec, err)
		}
	}
	if len(points) == 0 {
		return r.fail(rec, ErrNoData)
	}

	rows := analytics.Compute(points)
	rec.RowCount = len(rows)

	if err := r.deps.Prices.Write(rows); err != nil {
		return r.fail(rec, err)
	}
	rec.PricesPath = r.deps.Prices.Path()
	logx.Infof("etl: wrote %d rows to %s", len(rows), r.deps.Prices.Path())

	if err := r.deps.DB.UpsertPrices(ctx, rows); err != nil {
		logx.Errorf("etl: mirror prices to db: %v", err)
	}

	if err := r.sleep(ctx, r.cfg.MetadataPause); err != nil {
		return r.fail(rec, err)
	}

	ids := coinIDs(rows)
	coins := r.deps.Resolver.Resolve(ctx, ids)
	if err := r.deps.Snapshot.Save(coins); err != nil {
		return r.fail(rec, err)
	}
	if saver, ok := r.deps.Snapshot.(interface{ Path() string }); ok {
		rec.MetadataPath = saver.Path()
	}
	logx.Infof("etl: saved metadata for %d coins", len(coins))

	if err := r.deps.DB.UpsertCoins(ctx, coins); err != nil {
		logx.Errorf("etl: mirror metadata to db: %v", err)
	}

	rec.Success = true
	r.writeJournal(rec)
	logx.Infof("etl: run finished in %s", time.Since(start).Round(time.Millisecond))
	return nil
}

func (r *Runner) fail(rec *journal.RunRecord, err error) error {
	rec.ErrorMessage = err.Error()
	r.writeJournal(rec)
	return err
}

func (r *Runner) writeJournal(rec *journal.RunRecord) {
	if r.deps.Journal == nil {
		return
	}
	if _, err := r.deps.Journal.WriteRun(rec); err != nil {
		logx.Errorf("etl: write journal: %v", err)
	}
}

// coinIDs returns the sorted unique coin ids present in rows.
func coinIDs(rows []analytics.Row) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, row := range rows {
		if _, ok := seen[row.CoinID]; ok {
			continue
		}
		seen[row.CoinID] = struct{}{}
		ids = append(ids, row.CoinID)
	}
	sort.Strings(ids)
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
