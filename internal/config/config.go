package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Market      MarketConfig    `toml:"market"`
	Portfolio   PortfolioConfig `toml:"portfolio"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// MarketConfig contains settings for the CoinGecko market-data API.
type MarketConfig struct {
	BaseURL         string `toml:"base_url"`
	APIKey          string `toml:"api_key"`
	VsCurrency      string `toml:"vs_currency"`
	Timeout         string `toml:"timeout"`
	CacheTTL        string `toml:"cache_ttl"`
	CacheMaxEntries int    `toml:"cache_max_entries"`
	RefreshInterval string `toml:"refresh_interval"`
	ListingSize     int    `toml:"listing_size"`
	HomeSize        int    `toml:"home_size"`
	PortfolioSize   int    `toml:"portfolio_size"`
}

// PortfolioConfig contains ledger and valuation settings.
type PortfolioConfig struct {
	StorageKey string `toml:"storage_key"`
	Unpriced   string `toml:"unpriced"` // "zero" or "exclude"
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// maxPageSize is the largest per_page value CoinGecko accepts on /coins/markets.
const maxPageSize = 250

// IsDevMode reports whether the portal runs in development mode.
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// BaseURL returns the externally visible portal URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// GetTimeout parses and returns the upstream request timeout.
func (c *MarketConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 10*time.Second)
}

// GetCacheTTL parses and returns the response cache TTL.
func (c *MarketConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 60*time.Second)
}

// GetRefreshInterval parses and returns the background snapshot refresh interval.
// Zero disables background refresh.
func (c *MarketConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, 60*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies COIN_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("COIN_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("COIN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("COIN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if u := os.Getenv("COIN_MARKET_URL"); u != "" {
		config.Market.BaseURL = u
	}
	if key := os.Getenv("COINGECKO_API_KEY"); key != "" {
		config.Market.APIKey = key
	}
	if vs := os.Getenv("COIN_VS_CURRENCY"); vs != "" {
		config.Market.VsCurrency = strings.ToLower(vs)
	}
	if badgerPath := os.Getenv("COIN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if level := os.Getenv("COIN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if policy := os.Getenv("COIN_UNPRICED_POLICY"); policy != "" {
		config.Portfolio.Unpriced = policy
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks mandatory fields and returns a list of human-readable issues.
// An empty result means the configuration is usable.
func (c *Config) Validate() []string {
	var issues []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port must be between 1 and 65535 (got %d)", c.Server.Port))
	}

	if strings.TrimSpace(c.Market.BaseURL) == "" {
		issues = append(issues, "market.base_url is required (COIN_MARKET_URL)")
	} else if u, err := url.Parse(c.Market.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, fmt.Sprintf("market.base_url must be an http(s) URL (got %q)", c.Market.BaseURL))
	}
	if strings.TrimSpace(c.Market.VsCurrency) == "" {
		issues = append(issues, "market.vs_currency is required")
	}

	for name, value := range map[string]string{
		"market.timeout":          c.Market.Timeout,
		"market.cache_ttl":        c.Market.CacheTTL,
		"market.refresh_interval": c.Market.RefreshInterval,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			issues = append(issues, fmt.Sprintf("%s must be a non-negative duration (got %q)", name, value))
		}
	}

	for name, size := range map[string]int{
		"market.listing_size":   c.Market.ListingSize,
		"market.home_size":      c.Market.HomeSize,
		"market.portfolio_size": c.Market.PortfolioSize,
	} {
		if size <= 0 || size > maxPageSize {
			issues = append(issues, fmt.Sprintf("%s must be between 1 and %d (got %d)", name, maxPageSize, size))
		}
	}

	if strings.TrimSpace(c.Portfolio.StorageKey) == "" {
		issues = append(issues, "portfolio.storage_key is required")
	}
	switch strings.ToLower(c.Portfolio.Unpriced) {
	case "", "zero", "exclude":
	default:
		issues = append(issues, fmt.Sprintf("portfolio.unpriced must be \"zero\" or \"exclude\" (got %q)", c.Portfolio.Unpriced))
	}

	if strings.TrimSpace(c.Storage.Badger.Path) == "" {
		issues = append(issues, "storage.badger.path is required (COIN_BADGER_PATH)")
	}

	return issues
}
