package coingecko

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// MarketChart fetches the daily price series for one coin. Sub-daily source
// points collapsing onto the same calendar date keep the last occurrence, and
// the returned series is sorted ascending by date. An empty series from the
// API yields (nil, nil): no data is not an error.
func (c *Client) MarketChart(ctx context.Context, coinID, vsCurrency, days string) ([]PricePoint, error) {
	query := url.Values{
		"vs_currency": {vsCurrency},
		"days":        {days},
		"interval":    {"daily"},
	}
	var payload marketChartResponse
	if err := c.getJSON(ctx, "/coins/"+coinID+"/market_chart", query, &payload); err != nil {
		return nil, err
	}
	if len(payload.Prices) == 0 {
		return nil, nil
	}

	byDate := make(map[time.Time]float64, len(payload.Prices))
	for _, pair := range payload.Prices {
		date := time.UnixMilli(int64(pair[0])).UTC().Truncate(24 * time.Hour)
		byDate[date] = pair[1]
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	points := make([]PricePoint, 0, len(dates))
	for _, date := range dates {
		points = append(points, PricePoint{
			Date:       date,
			CoinID:     coinID,
			VsCurrency: vsCurrency,
			Price:      byDate[date],
		})
	}
	return points, nil
}

// Markets fetches listing metadata (symbol, name, market cap rank) for the
// supplied coin ids in one batched call.
func (c *Client) Markets(ctx context.Context, vsCurrency string, ids []string) ([]Market, error) {
	query := url.Values{
		"vs_currency": {vsCurrency},
		"ids":         {joinIDs(ids)},
	}
	var rows []Market
	if err := c.getJSON(ctx, "/coins/markets", query, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// TopCoins returns the ids of the n largest coins by market cap.
func (c *Client) TopCoins(ctx context.Context, vsCurrency string, n int) ([]string, error) {
	query := url.Values{
		"vs_currency": {vsCurrency},
		"order":       {"market_cap_desc"},
		"per_page":    {strconv.Itoa(n)},
		"page":        {"1"},
	}
	var rows []Market
	if err := c.getJSON(ctx, "/coins/markets", query, &rows); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func joinIDs(ids []string) string {
	switch len(ids) {
	case 0:
		return ""
	case 1:
		return ids[0]
	}
	joined := ids[0]
	for _, id := range ids[1:] {
		joined += "," + id
	}
	return joined
}
