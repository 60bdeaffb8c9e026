package metadata

// MemoryStore is an in-process Store used in tests and in runs that opt out
// of a persisted snapshot.
type MemoryStore struct {
	coins []Coin
}

// NewMemoryStore seeds a store with an optional prior snapshot.
func NewMemoryStore(coins ...Coin) *MemoryStore {
	return &MemoryStore{coins: append([]Coin(nil), coins...)}
}

func (s *MemoryStore) Load() ([]Coin, error) {
	return append([]Coin(nil), s.coins...), nil
}

func (s *MemoryStore) Save(coins []Coin) error {
	s.coins = append([]Coin(nil), coins...)
	return nil
}
