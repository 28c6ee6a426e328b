package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4251,
			Host: "localhost",
		},
		Market: MarketConfig{
			BaseURL:         "https://api.coingecko.com/api/v3",
			VsCurrency:      "usd",
			Timeout:         "10s",
			CacheTTL:        "60s",
			CacheMaxEntries: 256,
			RefreshInterval: "60s",
			ListingSize:     100,
			HomeSize:        50,
			PortfolioSize:   250,
		},
		Portfolio: PortfolioConfig{
			StorageKey: "portfolio",
			Unpriced:   "zero",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/coin-portal",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/coin-portal.log",
			MaxSizeMB:  1,
			MaxBackups: 10,
		},
	}
}
