package metadata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"cryptoetl/pkg/coingecko"
)

type fakeLister struct {
	rows  []coingecko.Market
	err   error
	calls int
}

func (f *fakeLister) Markets(_ context.Context, _ string, _ []string) ([]coingecko.Market, error) {
	f.calls++
	return f.rows, f.err
}

type failingStore struct{}

func (failingStore) Load() ([]Coin, error) { return nil, errors.New("corrupt snapshot") }
func (failingStore) Save([]Coin) error     { return errors.New("read-only") }

func intPtr(v int) *int { return &v }

func TestResolveSnapshotShortCircuit(t *testing.T) {
	store := NewMemoryStore(
		Coin{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", MarketCapRank: intPtr(1)},
		Coin{ID: "ethereum", Symbol: "eth", Name: "Ethereum", MarketCapRank: intPtr(2)},
	)
	lister := &fakeLister{}
	resolver := NewResolver(lister, store, "usd")

	coins := resolver.Resolve(context.Background(), []string{"bitcoin"})
	require.Len(t, coins, 2, "snapshot is returned unchanged")
	require.Zero(t, lister.calls, "covered ids must not trigger a network call")
}

func TestResolveFreshFetchWinsOverSnapshot(t *testing.T) {
	store := NewMemoryStore(
		Coin{ID: "bitcoin", Symbol: "old", Name: "Old Bitcoin", MarketCapRank: intPtr(9)},
	)
	lister := &fakeLister{rows: []coingecko.Market{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", MarketCapRank: intPtr(1)},
		{ID: "solana", Symbol: "sol", Name: "Solana", MarketCapRank: intPtr(5)},
	}}
	resolver := NewResolver(lister, store, "usd")

	coins := resolver.Resolve(context.Background(), []string{"bitcoin", "solana"})
	require.Equal(t, 1, lister.calls)
	require.Len(t, coins, 2)

	byID := indexByID(coins)
	require.Equal(t, "btc", byID["bitcoin"].Symbol, "fresh record wins on conflict")
	require.Equal(t, 1, *byID["bitcoin"].MarketCapRank)
	require.Equal(t, "sol", byID["solana"].Symbol)
}

func TestResolveFallbackSynthesizesAndPrefersSnapshot(t *testing.T) {
	store := NewMemoryStore(
		Coin{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", MarketCapRank: intPtr(1)},
	)
	lister := &fakeLister{err: errors.New("rate limited for good")}
	resolver := NewResolver(lister, store, "usd")

	coins := resolver.Resolve(context.Background(), []string{"bitcoin", "binancecoin"})
	require.Len(t, coins, 2)

	byID := indexByID(coins)
	// Stale-but-real snapshot data beats the synthesized placeholder.
	require.Equal(t, "btc", byID["bitcoin"].Symbol)
	require.Equal(t, 1, *byID["bitcoin"].MarketCapRank)
	// Missing ids are synthesized deterministically with unknown rank.
	require.Equal(t, "BINA", byID["binancecoin"].Symbol)
	require.Equal(t, "Binancecoin", byID["binancecoin"].Name)
	require.Nil(t, byID["binancecoin"].MarketCapRank)
}

func TestResolveFallbackWithoutSnapshot(t *testing.T) {
	lister := &fakeLister{err: errors.New("down")}
	resolver := NewResolver(lister, NewMemoryStore(), "usd")

	coins := resolver.Resolve(context.Background(), []string{"bitcoin"})
	require.Len(t, coins, 1)
	require.Equal(t, "bitcoin", coins[0].ID)
	require.Equal(t, "BITC", coins[0].Symbol)
	require.Equal(t, "Bitcoin", coins[0].Name)
	require.Nil(t, coins[0].MarketCapRank)
}

func TestResolveSurvivesStoreFailure(t *testing.T) {
	lister := &fakeLister{rows: []coingecko.Market{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}}}
	resolver := NewResolver(lister, failingStore{}, "usd")

	coins := resolver.Resolve(context.Background(), []string{"bitcoin"})
	require.Len(t, coins, 1)
	require.Equal(t, "btc", coins[0].Symbol)
}

func TestResolveNeverDropsSnapshotIDs(t *testing.T) {
	store := NewMemoryStore(
		Coin{ID: "dogecoin", Symbol: "doge", Name: "Dogecoin", MarketCapRank: intPtr(8)},
	)
	lister := &fakeLister{rows: []coingecko.Market{{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"}}}
	resolver := NewResolver(lister, store, "usd")

	coins := resolver.Resolve(context.Background(), []string{"bitcoin"})
	byID := indexByID(coins)
	require.Contains(t, byID, "dogecoin", "prior snapshot ids are never dropped")
	require.Contains(t, byID, "bitcoin")
}

func TestResolveListingPauseSkippedOnCacheHit(t *testing.T) {
	paused := 0
	pause := func(context.Context) { paused++ }

	store := NewMemoryStore(Coin{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin"})
	lister := &fakeLister{rows: []coingecko.Market{{ID: "solana", Symbol: "sol", Name: "Solana"}}}
	resolver := NewResolver(lister, store, "usd", WithListingPause(pause))

	resolver.Resolve(context.Background(), []string{"bitcoin"})
	require.Zero(t, paused)

	resolver.Resolve(context.Background(), []string{"solana"})
	require.Equal(t, 1, paused)
}

func TestSynthesize(t *testing.T) {
	coins := Synthesize([]string{"binance-coin", "x"})
	require.Equal(t, "BINA", coins[0].Symbol)
	require.Equal(t, "Binance Coin", coins[0].Name)
	require.Equal(t, "X", coins[1].Symbol)
	require.Equal(t, "X", coins[1].Name)
}

func indexByID(coins []Coin) map[string]Coin {
	byID := make(map[string]Coin, len(coins))
	for _, coin := range coins {
		byID[coin.ID] = coin
	}
	return byID
}
