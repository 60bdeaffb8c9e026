// Package analytics derives descriptive time-series metrics from daily price
// observations. All computations run per coin in a single chronological pass;
// input series are assumed sorted ascending by date with positive prices.
package analytics

import (
	"cryptoetl/pkg/coingecko"
)

const (
	shortWindow = 7
	longWindow  = 30
)

// Row extends a price observation with its derived metrics.
type Row struct {
	coingecko.PricePoint

	// DailyReturn is the fractional change vs the prior date; 0 on the
	// first observation of a coin.
	DailyReturn float64
	// PctChange is DailyReturn expressed in percent.
	PctChange float64
	// MA7 and MA30 are trailing simple moving averages whose windows
	// shrink at the start of the series.
	MA7  float64
	MA30 float64
	// CumReturn compounds (1 + DailyReturn) from the first observation.
	CumReturn float64
	// RollingMaxPrice is the running maximum price seen so far.
	RollingMaxPrice float64
	// Drawdown is (price - running max) / running max, always <= 0.
	Drawdown float64
}

// Compute derives metrics for every coin in points. Coins are processed
// independently, preserving first-seen coin order and the chronological order
// of each coin's observations.
func Compute(points []coingecko.PricePoint) []Row {
	groups := make(map[string][]coingecko.PricePoint)
	var order []string
	for _, p := range points {
		if _, seen := groups[p.CoinID]; !seen {
			order = append(order, p.CoinID)
		}
		groups[p.CoinID] = append(groups[p.CoinID], p)
	}

	rows := make([]Row, 0, len(points))
	for _, coinID := range order {
		rows = append(rows, computeSeries(groups[coinID])...)
	}
	return rows
}

// computeSeries runs the accumulators over one coin's chronological series.
func computeSeries(series []coingecko.PricePoint) []Row {
	rows := make([]Row, len(series))

	var (
		sumShort   float64
		sumLong    float64
		growth     = 1.0
		runningMax float64
	)

	for i, p := range series {
		sumShort += p.Price
		if i >= shortWindow {
			sumShort -= series[i-shortWindow].Price
		}
		sumLong += p.Price
		if i >= longWindow {
			sumLong -= series[i-longWindow].Price
		}

		var dailyReturn float64
		if i > 0 {
			dailyReturn = p.Price/series[i-1].Price - 1
		}
		growth *= 1 + dailyReturn

		if p.Price > runningMax {
			runningMax = p.Price
		}

		rows[i] = Row{
			PricePoint:      p,
			DailyReturn:     dailyReturn,
			PctChange:       dailyReturn * 100,
			MA7:             sumShort / float64(windowLen(i, shortWindow)),
			MA30:            sumLong / float64(windowLen(i, longWindow)),
			CumReturn:       growth - 1,
			RollingMaxPrice: runningMax,
			Drawdown:        (p.Price - runningMax) / runningMax,
		}
	}
	return rows
}

func windowLen(i, window int) int {
	if i+1 < window {
		return i + 1
	}
	return window
}
