// Package persistence mirrors the CSV outputs into Postgres when a DSN is
// configured. The service degrades to a no-op when unconfigured so the batch
// job never depends on a database being present.
package persistence

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"cryptoetl/pkg/analytics"
	"cryptoetl/pkg/metadata"
)

// Service upserts price metrics and coin metadata.
type Service struct {
	conn sqlx.SqlConn
}

// NewService connects to Postgres via the pgx stdlib driver. An empty DSN
// yields a nil service; all methods no-op on nil.
func NewService(dsn string) *Service {
	if strings.TrimSpace(dsn) == "" {
		return nil
	}
	return &Service{conn: sqlx.NewSqlConn("pgx", dsn)}
}

// NewServiceWithConn wires an existing connection, for tests.
func NewServiceWithConn(conn sqlx.SqlConn) *Service {
	if conn == nil {
		return nil
	}
	return &Service{conn: conn}
}

// UpsertPrices persists the full price+metrics dataset keyed by
// (coin_id, date, vs_currency).
func (s *Service) UpsertPrices(ctx context.Context, rows []analytics.Row) error {
	if s == nil || s.conn == nil || len(rows) == 0 {
		return nil
	}
	stmt := `
INSERT INTO public.crypto_prices (
    coin_id, date, vs_currency, price,
    daily_return, pct_change, ma_7, ma_30,
    cum_return, rolling_max_price, drawdown,
    created_at, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
)
ON CONFLICT (coin_id, date, vs_currency) DO UPDATE SET
    price = EXCLUDED.price,
    daily_return = EXCLUDED.daily_return,
    pct_change = EXCLUDED.pct_change,
    ma_7 = EXCLUDED.ma_7,
    ma_30 = EXCLUDED.ma_30,
    cum_return = EXCLUDED.cum_return,
    rolling_max_price = EXCLUDED.rolling_max_price,
    drawdown = EXCLUDED.drawdown,
    updated_at = NOW();`
	for _, row := range rows {
		if _, err := s.conn.ExecCtx(ctx, stmt,
			row.CoinID,
			row.Date,
			row.VsCurrency,
			row.Price,
			row.DailyReturn,
			row.PctChange,
			row.MA7,
			row.MA30,
			row.CumReturn,
			row.RollingMaxPrice,
			row.Drawdown,
		); err != nil {
			return err
		}
	}
	return nil
}

// UpsertCoins persists resolved metadata keyed by coin_id.
func (s *Service) UpsertCoins(ctx context.Context, coins []metadata.Coin) error {
	if s == nil || s.conn == nil || len(coins) == 0 {
		return nil
	}
	stmt := `
INSERT INTO public.coin_metadata (coin_id, symbol, name, market_cap_rank, created_at, updated_at)
VALUES ($1, $2, $3, $4, NOW(), NOW())
ON CONFLICT (coin_id) DO UPDATE SET
    symbol = EXCLUDED.symbol,
    name = EXCLUDED.name,
    market_cap_rank = EXCLUDED.market_cap_rank,
    updated_at = NOW();`
	for _, coin := range coins {
		if strings.TrimSpace(coin.ID) == "" {
			continue
		}
		rank := sql.NullInt64{}
		if coin.MarketCapRank != nil {
			rank = sql.NullInt64{Int64: int64(*coin.MarketCapRank), Valid: true}
		}
		if _, err := s.conn.ExecCtx(ctx, stmt, coin.ID, coin.Symbol, coin.Name, rank); err != nil {
			return err
		}
	}
	return nil
}
