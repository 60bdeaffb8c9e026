package coingecko

import "time"

// PricePoint is one daily price observation for a coin. Date is truncated to
// UTC midnight; at most one point exists per (CoinID, Date).
type PricePoint struct {
	Date       time.Time
	CoinID     string
	VsCurrency string
	Price      float64
}

// Market is one row from the coin listing endpoint. MarketCapRank is nil when
// the API does not rank the coin.
type Market struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank *int   `json:"market_cap_rank"`
}

// marketChartResponse mirrors /coins/{id}/market_chart. Each price entry is
// an [epoch_ms, price] pair.
type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}
