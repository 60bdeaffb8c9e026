package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cryptoetl/pkg/analytics"
	"cryptoetl/pkg/coingecko"
	"cryptoetl/pkg/metadata"
)

type fakeCharts struct {
	series map[string][]coingecko.PricePoint
	errs   map[string]error
	calls  []string
}

func (f *fakeCharts) MarketChart(_ context.Context, coinID, vsCurrency, days string) ([]coingecko.PricePoint, error) {
	f.calls = append(f.calls, coinID)
	if err := f.errs[coinID]; err != nil {
		return nil, err
	}
	return f.series[coinID], nil
}

type fakeResolver struct {
	ids []string
}

func (f *fakeResolver) Resolve(_ context.Context, ids []string) []metadata.Coin {
	f.ids = ids
	return metadata.Synthesize(ids)
}

type fakeSink struct {
	rows []analytics.Row
	err  error
}

func (f *fakeSink) Write(rows []analytics.Row) error {
	if f.err != nil {
		return f.err
	}
	f.rows = rows
	return nil
}

func (f *fakeSink) Path() string { return "test/crypto_prices.csv" }

func points(coinID string, prices ...float64) []coingecko.PricePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]coingecko.PricePoint, len(prices))
	for i, price := range prices {
		out[i] = coingecko.PricePoint{Date: start.AddDate(0, 0, i), CoinID: coinID, VsCurrency: "usd", Price: price}
	}
	return out
}

func testConfig(coins ...string) *Config {
	cfg := Default()
	cfg.Coins = coins
	return cfg
}

func newTestRunner(t *testing.T, cfg *Config, deps Deps) (*Runner, *[]time.Duration) {
	t.Helper()
	runner, err := NewRunner(cfg, deps)
	require.NoError(t, err)

	var waits []time.Duration
	runner.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return runner, &waits
}

func TestRunHappyPath(t *testing.T) {
	charts := &fakeCharts{series: map[string][]coingecko.PricePoint{
		"bitcoin":  points("bitcoin", 10, 20, 10),
		"ethereum": points("ethereum", 5, 6),
	}}
	resolver := &fakeResolver{}
	sink := &fakeSink{}
	snapshot := metadata.NewMemoryStore()

	runner, waits := newTestRunner(t, testConfig("bitcoin", "ethereum"), Deps{
		Charts: charts, Resolver: resolver, Prices: sink, Snapshot: snapshot,
	})
	require.NoError(t, runner.Run(context.Background()))

	require.Len(t, sink.rows, 5)
	require.Equal(t, []string{"bitcoin", "ethereum"}, resolver.ids, "ids passed to resolver are sorted unique")

	saved, err := snapshot.Load()
	require.NoError(t, err)
	require.Len(t, saved, 2)

	// One pacing sleep per fetched coin plus the pre-metadata pause.
	require.Len(t, *waits, 3)
	require.Equal(t, defaultCoinPause, (*waits)[0])
	require.Equal(t, defaultMetadataPause, (*waits)[2])
}

func TestRunSkipsEmptySeries(t *testing.T) {
	charts := &fakeCharts{series: map[string][]coingecko.PricePoint{
		"bitcoin": points("bitcoin", 10, 11),
	}}
	sink := &fakeSink{}

	runner, _ := newTestRunner(t, testConfig("ghostcoin", "bitcoin"), Deps{
		Charts: charts, Resolver: &fakeResolver{}, Prices: sink, Snapshot: metadata.NewMemoryStore(),
	})
	require.NoError(t, runner.Run(context.Background()))

	require.Equal(t, []string{"ghostcoin", "bitcoin"}, charts.calls)
	require.Len(t, sink.rows, 2, "empty series is skipped, not fatal")
}

func TestRunAbortsWhenNoCoinHasData(t *testing.T) {
	runner, _ := newTestRunner(t, testConfig("ghostcoin"), Deps{
		Charts: &fakeCharts{}, Resolver: &fakeResolver{}, Prices: &fakeSink{}, Snapshot: metadata.NewMemoryStore(),
	})

	err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrNoData)
}

func TestRunPropagatesTerminalFetchError(t *testing.T) {
	terminal := &coingecko.FetchError{Endpoint: "/coins/bitcoin/market_chart", Attempts: 8}
	charts := &fakeCharts{errs: map[string]error{"bitcoin": terminal}}

	runner, _ := newTestRunner(t, testConfig("bitcoin", "ethereum"), Deps{
		Charts: charts, Resolver: &fakeResolver{}, Prices: &fakeSink{}, Snapshot: metadata.NewMemoryStore(),
	})

	err := runner.Run(context.Background())
	require.Error(t, err)

	var fetchErr *coingecko.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, []string{"bitcoin"}, charts.calls, "run stops at the failing coin")
}

func TestRunFailsOnSinkError(t *testing.T) {
	charts := &fakeCharts{series: map[string][]coingecko.PricePoint{
		"bitcoin": points("bitcoin", 10),
	}}
	sink := &fakeSink{err: errors.New("disk full")}

	runner, _ := newTestRunner(t, testConfig("bitcoin"), Deps{
		Charts: charts, Resolver: &fakeResolver{}, Prices: sink, Snapshot: metadata.NewMemoryStore(),
	})
	require.Error(t, runner.Run(context.Background()))
}

func TestNewRunnerValidatesDeps(t *testing.T) {
	cfg := testConfig("bitcoin")
	base := Deps{
		Charts: &fakeCharts{}, Resolver: &fakeResolver{}, Prices: &fakeSink{}, Snapshot: metadata.NewMemoryStore(),
	}

	_, err := NewRunner(nil, base)
	require.Error(t, err)

	for _, strip := range []func(Deps) Deps{
		func(d Deps) Deps { d.Charts = nil; return d },
		func(d Deps) Deps { d.Resolver = nil; return d },
		func(d Deps) Deps { d.Prices = nil; return d },
		func(d Deps) Deps { d.Snapshot = nil; return d },
	} {
		_, err := NewRunner(cfg, strip(base))
		require.Error(t, err)
	}
}
