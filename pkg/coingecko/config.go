package coingecko

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the CoinGecko client settings loaded from its own section
// file.
type Config struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`

	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`

	MaxAttempts int     `yaml:"max_attempts"`
	BackoffBase float64 `yaml:"backoff_base"`
}

// LoadConfig reads client configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coingecko config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read coingecko config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal coingecko config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	c.BaseURL = strings.TrimSpace(os.ExpandEnv(c.BaseURL))
	c.UserAgent = strings.TrimSpace(os.ExpandEnv(c.UserAgent))
	c.HTTPTimeoutRaw = strings.TrimSpace(os.ExpandEnv(c.HTTPTimeoutRaw))
	if c.HTTPTimeoutRaw != "" {
		d, err := time.ParseDuration(c.HTTPTimeoutRaw)
		if err != nil {
			return fmt.Errorf("coingecko config: invalid http_timeout %q: %w", c.HTTPTimeoutRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("coingecko config: http_timeout must be positive, got %s", d)
		}
		c.HTTPTimeout = d
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("coingecko config: max_attempts cannot be negative")
	}
	if c.BackoffBase != 0 && c.BackoffBase <= 1 {
		return fmt.Errorf("coingecko config: backoff_base must be greater than 1")
	}
	return nil
}

// Build constructs a Client from configuration, falling back to package
// defaults for unset fields. A nil receiver yields a default client.
func (c *Config) Build() *Client {
	if c == nil {
		return NewClient()
	}
	opts := []Option{
		WithBaseURL(c.BaseURL),
		WithUserAgent(c.UserAgent),
		WithMaxAttempts(c.MaxAttempts),
		WithBackoffBase(c.BackoffBase),
	}
	if c.HTTPTimeout > 0 {
		opts = append(opts, WithHTTPClient(&http.Client{Timeout: c.HTTPTimeout}))
	}
	return NewClient(opts...)
}
