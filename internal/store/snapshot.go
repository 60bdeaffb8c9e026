package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/zeromicro/go-zero/core/logx"

	"cryptoetl/pkg/metadata"
)

var snapshotHeader = []string{"coin_id", "symbol", "name", "market_cap_rank"}

// SnapshotStore persists the metadata snapshot as a CSV file. It implements
// metadata.Store. A missing or unreadable file loads as an empty snapshot so
// a damaged snapshot can never fail a run.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore targets the given snapshot path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the snapshot location.
func (s *SnapshotStore) Path() string { return s.path }

// Load reads the prior snapshot. Missing file yields an empty snapshot;
// malformed content is logged and treated as empty.
func (s *SnapshotStore) Load() ([]metadata.Coin, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: open snapshot %s: %w", s.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		logx.Errorf("store: malformed snapshot %s, treating as empty: %v", s.path, err)
		return nil, nil
	}
	if len(records) == 0 {
		return nil, nil
	}

	coins := make([]metadata.Coin, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) < len(snapshotHeader) {
			continue
		}
		coin := metadata.Coin{ID: record[0], Symbol: record[1], Name: record[2]}
		if record[3] != "" {
			if rank, err := strconv.Atoi(record[3]); err == nil {
				coin.MarketCapRank = &rank
			}
		}
		coins = append(coins, coin)
	}
	return coins, nil
}

// Save rewrites the snapshot with coins.
func (s *SnapshotStore) Save(coins []metadata.Coin) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("store: create snapshot dir: %w", err)
	}
	file, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("store: create snapshot %s: %w", s.path, err)
	}
	defer file.Close()

	if err := writeSnapshot(file, coins); err != nil {
		return fmt.Errorf("store: write snapshot %s: %w", s.path, err)
	}
	return file.Sync()
}

func writeSnapshot(w io.Writer, coins []metadata.Coin) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(snapshotHeader); err != nil {
		return err
	}
	for _, coin := range coins {
		rank := ""
		if coin.MarketCapRank != nil {
			rank = strconv.Itoa(*coin.MarketCapRank)
		}
		if err := cw.Write([]string{coin.ID, coin.Symbol, coin.Name, rank}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
