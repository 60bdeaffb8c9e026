// Package metadata resolves coin reference data (symbol, display name,
// market cap rank) against a persisted snapshot, degrading to synthesized
// placeholders when the remote lookup fails. Resolution never errors.
package metadata

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/pkg/coingecko"
)

// Coin is one resolved metadata record. MarketCapRank is nil when unknown.
type Coin struct {
	ID            string
	Symbol        string
	Name          string
	MarketCapRank *int
}

// Store persists the metadata snapshot between runs.
type Store interface {
	Load() ([]Coin, error)
	Save([]Coin) error
}

// Lister is the remote listing surface the resolver depends on.
type Lister interface {
	Markets(ctx context.Context, vsCurrency string, ids []string) ([]coingecko.Market, error)
}

// Resolver merges snapshot, remote and synthesized metadata.
type Resolver struct {
	client     Lister
	store      Store
	vsCurrency string

	// pause runs before the remote listing call to respect upstream rate
	// limits; it is skipped on the snapshot short-circuit path.
	pause func(ctx context.Context)
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithListingPause installs a wait executed before each remote listing call.
func WithListingPause(fn func(ctx context.Context)) ResolverOption {
	return func(r *Resolver) {
		if fn != nil {
			r.pause = fn
		}
	}
}

// NewResolver constructs a Resolver over the given listing client and store.
func NewResolver(client Lister, store Store, vsCurrency string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:     client,
		store:      store,
		vsCurrency: vsCurrency,
		pause:      func(context.Context) {},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns best-effort metadata for ids. Preference order: a snapshot
// already covering every id, then a fresh remote lookup merged over the
// snapshot (fresh wins), then synthesized placeholders merged under the
// snapshot (stale-but-real data wins). It never returns an error.
func (r *Resolver) Resolve(ctx context.Context, ids []string) []Coin {
	snapshot, err := r.store.Load()
	if err != nil {
		logx.WithContext(ctx).Errorf("metadata: load snapshot: %v", err)
		snapshot = nil
	}
	if len(snapshot) > 0 && covers(snapshot, ids) {
		return snapshot
	}

	r.pause(ctx)
	listings, err := r.client.Markets(ctx, r.vsCurrency, ids)
	if err != nil {
		logx.WithContext(ctx).Errorf("metadata: remote lookup failed, using synthesized fallback: %v", err)
		return merge(Synthesize(ids), snapshot)
	}

	fresh := make([]Coin, 0, len(listings))
	for _, row := range listings {
		fresh = append(fresh, Coin{
			ID:            row.ID,
			Symbol:        row.Symbol,
			Name:          row.Name,
			MarketCapRank: row.MarketCapRank,
		})
	}
	return merge(snapshot, fresh)
}

// Synthesize builds minimal placeholder records from coin ids alone.
func Synthesize(ids []string) []Coin {
	coins := make([]Coin, 0, len(ids))
	for _, id := range ids {
		coins = append(coins, Coin{
			ID:     id,
			Symbol: synthSymbol(id),
			Name:   humanize(id),
		})
	}
	return coins
}

// merge unions base and overlay by id; overlay records win on conflict and
// base ids are never dropped. Base order is preserved, new overlay ids append
// in order.
func merge(base, overlay []Coin) []Coin {
	byID := make(map[string]int, len(base))
	out := make([]Coin, 0, len(base)+len(overlay))
	for _, coin := range base {
		byID[coin.ID] = len(out)
		out = append(out, coin)
	}
	for _, coin := range overlay {
		if i, ok := byID[coin.ID]; ok {
			out[i] = coin
			continue
		}
		byID[coin.ID] = len(out)
		out = append(out, coin)
	}
	return out
}

func covers(snapshot []Coin, ids []string) bool {
	have := make(map[string]struct{}, len(snapshot))
	for _, coin := range snapshot {
		have[coin.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			return false
		}
	}
	return true
}

func synthSymbol(id string) string {
	if len(id) > 4 {
		id = id[:4]
	}
	return strings.ToUpper(id)
}

// humanize turns "binance-coin" into "Binance Coin".
func humanize(id string) string {
	words := strings.Split(strings.ReplaceAll(id, "-", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
