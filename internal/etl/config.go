package etl

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCoins is the asset list used when no coins are configured.
var DefaultCoins = []string{"bitcoin", "ethereum", "tether", "binancecoin", "solana"}

const (
	defaultVsCurrency    = "usd"
	defaultDays          = "365"
	defaultCoinPause     = 1100 * time.Millisecond
	defaultMetadataPause = 4 * time.Second
	defaultListingPause  = 6 * time.Second
	defaultPricesFile    = "crypto_prices.csv"
	defaultMetadataFile  = "coin_metadata.csv"
)

// Config describes one ETL job: which coins to pull, the price window, the
// pacing pauses that respect the upstream rate limit, and the output files.
type Config struct {
	Coins      []string `yaml:"coins"`
	VsCurrency string   `yaml:"vs_currency"`
	Days       string   `yaml:"days"`

	// TopCoins, when positive and Coins is empty, discovers the asset list
	// from the market-cap leaderboard instead.
	TopCoins int `yaml:"top_coins"`

	CoinPauseRaw     string        `yaml:"coin_pause"`
	CoinPause        time.Duration `yaml:"-"`
	MetadataPauseRaw string        `yaml:"metadata_pause"`
	MetadataPause    time.Duration `yaml:"-"`
	ListingPauseRaw  string        `yaml:"listing_pause"`
	ListingPause     time.Duration `yaml:"-"`

	PricesFile   string `yaml:"prices_file"`
	MetadataFile string `yaml:"metadata_file"`

	// Interval re-runs the job on a ticker when positive; zero means one
	// run per invocation.
	IntervalRaw string        `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
}

// LoadConfig reads job configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open etl config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read etl config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal etl config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config mirroring the job's built-in defaults.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.normalise()
	return cfg
}

func (c *Config) normalise() error {
	if len(c.Coins) == 0 && c.TopCoins <= 0 {
		c.Coins = append([]string(nil), DefaultCoins...)
	}
	if strings.TrimSpace(c.VsCurrency) == "" {
		c.VsCurrency = defaultVsCurrency
	}
	if strings.TrimSpace(c.Days) == "" {
		c.Days = defaultDays
	}
	if strings.TrimSpace(c.PricesFile) == "" {
		c.PricesFile = defaultPricesFile
	}
	if strings.TrimSpace(c.MetadataFile) == "" {
		c.MetadataFile = defaultMetadataFile
	}

	pauses := []struct {
		name     string
		raw      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"coin_pause", c.CoinPauseRaw, defaultCoinPause, &c.CoinPause},
		{"metadata_pause", c.MetadataPauseRaw, defaultMetadataPause, &c.MetadataPause},
		{"listing_pause", c.ListingPauseRaw, defaultListingPause, &c.ListingPause},
		{"interval", c.IntervalRaw, 0, &c.Interval},
	}
	for _, p := range pauses {
		raw := strings.TrimSpace(os.ExpandEnv(p.raw))
		if raw == "" {
			*p.dst = p.fallback
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("etl config: invalid %s %q: %w", p.name, raw, err)
		}
		if d < 0 {
			return fmt.Errorf("etl config: %s cannot be negative, got %s", p.name, d)
		}
		*p.dst = d
	}
	return nil
}
