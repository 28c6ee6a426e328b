package config

import (
	"os"
	"path/filepath"

	"github.com/bobmcallan/coin-portal/internal/common"
)

// FileName is the configuration file every binary looks for.
const FileName = "coin-portal.toml"

// SearchPaths returns TOML files to auto-discover (first match wins).
// Binary-relative paths are tried first, with CWD and Docker fallbacks after.
// Paths are deduplicated via filepath.Abs.
func SearchPaths() []string {
	candidates := []string{
		FileName,
		filepath.Join("config", FileName),
		filepath.Join("docker", FileName),
	}

	exe, err := os.Executable()
	if err != nil {
		return candidates
	}
	binDir := filepath.Dir(exe)

	paths := []string{
		filepath.Join(binDir, FileName),
		filepath.Join(binDir, "config", FileName),
	}
	paths = append(paths, candidates...)

	seen := make(map[string]bool, len(paths))
	deduped := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		deduped = append(deduped, p)
	}
	return deduped
}

// Discover returns the first existing file from SearchPaths, or nil.
func Discover() []string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return []string{path}
		}
	}
	return nil
}

// LoggerConfig converts the logging section for common.NewLoggerFromConfig.
func (c *Config) LoggerConfig() common.LoggingConfig {
	return common.LoggingConfig{
		Level:      c.Logging.Level,
		Outputs:    c.Logging.Outputs,
		FilePath:   c.Logging.FilePath,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
	}
}
