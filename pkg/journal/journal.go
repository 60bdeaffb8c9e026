// Package journal records one file per ETL run for audit and debugging.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunRecord captures the outcome of one ETL run.
type RunRecord struct {
	Timestamp    time.Time `json:"timestamp"`
	RunNumber    int       `json:"run_number"`
	VsCurrency   string    `json:"vs_currency"`
	Days         string    `json:"days"`
	Requested    []string  `json:"requested_coins"`
	Loaded       []string  `json:"loaded_coins,omitempty"`
	Skipped      []string  `json:"skipped_coins,omitempty"`
	RowCount     int       `json:"row_count"`
	PricesPath   string    `json:"prices_path,omitempty"`
	MetadataPath string    `json:"metadata_path,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// Writer persists run records to a directory as JSON files.
type Writer struct {
	dir   string
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteRun writes a run record to a timestamped JSON file.
func (w *Writer) WriteRun(rec *RunRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}
	w.seq++
	rec.RunNumber = w.seq
	name := fmt.Sprintf("run_%s_%05d.json", rec.Timestamp.UTC().Format("20060102_150405"), w.seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
