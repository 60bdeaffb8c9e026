// Package store writes the job's tabular outputs as flat CSV files and keeps
// the metadata snapshot between runs.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cryptoetl/pkg/analytics"
)

const dateLayout = "2006-01-02"

var priceHeader = []string{
	"date", "coin_id", "vs_currency", "price",
	"daily_return", "pct_change", "ma_7", "ma_30",
	"cum_return", "rolling_max_price", "drawdown",
}

// PriceWriter persists the price+metrics dataset to one CSV file.
type PriceWriter struct {
	path string
}

// NewPriceWriter targets the given output path, creating parent directories
// on the first write.
func NewPriceWriter(path string) *PriceWriter {
	return &PriceWriter{path: path}
}

// Path returns the output location.
func (w *PriceWriter) Path() string { return w.path }

// Write replaces the dataset with rows. Each run recomputes the full window,
// so the file is rewritten wholesale rather than appended.
func (w *PriceWriter) Write(rows []analytics.Row) error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("store: create output dir: %w", err)
	}
	file, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", w.path, err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(priceHeader); err != nil {
		return fmt.Errorf("store: write header: %w", err)
	}
	for _, row := range rows {
		record := []string{
			row.Date.Format(dateLayout),
			row.CoinID,
			row.VsCurrency,
			formatFloat(row.Price),
			formatFloat(row.DailyReturn),
			formatFloat(row.PctChange),
			formatFloat(row.MA7),
			formatFloat(row.MA30),
			formatFloat(row.CumReturn),
			formatFloat(row.RollingMaxPrice),
			formatFloat(row.Drawdown),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("store: write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("store: flush %s: %w", w.path, err)
	}
	return file.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
