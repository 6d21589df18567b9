// Package config holds environment-variable-driven configuration for the
// install pipeline: home directory layout, download timeouts, and index
// cache behavior.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// EnvPybunHome overrides the default home directory.
	EnvPybunHome = "PYBUN_HOME"

	// EnvAPITimeout configures the HTTP request timeout for index lookups
	// and downloads.
	EnvAPITimeout = "PYBUN_API_TIMEOUT"

	// EnvIndexCacheTTL configures the TTL for cached index pages.
	EnvIndexCacheTTL = "PYBUN_INDEX_CACHE_TTL"

	// EnvDownloadCacheSizeLimit configures the soft size limit of the
	// content-addressed download cache.
	EnvDownloadCacheSizeLimit = "PYBUN_DOWNLOAD_CACHE_SIZE_LIMIT"

	// EnvMaxConcurrency configures the Downloader's maximum concurrent
	// in-flight requests.
	EnvMaxConcurrency = "PYBUN_MAX_CONCURRENCY"

	// DefaultAPITimeout is the default timeout for API requests.
	DefaultAPITimeout = 30 * time.Second

	// DefaultIndexCacheTTL is the default freshness window for cached
	// index pages.
	DefaultIndexCacheTTL = 1 * time.Hour

	// DefaultDownloadCacheSizeLimit is the default soft size limit for the
	// download cache (500MB).
	DefaultDownloadCacheSizeLimit = 500 * 1024 * 1024

	// DefaultMaxConcurrency is the default Downloader concurrency.
	DefaultMaxConcurrency = 4
)

// GetAPITimeout returns the configured API timeout from PYBUN_API_TIMEOUT.
// If not set or invalid, returns DefaultAPITimeout. Accepts duration
// strings like "30s", "1m", "2m30s".
func GetAPITimeout() time.Duration {
	envValue := os.Getenv(EnvAPITimeout)
	if envValue == "" {
		return DefaultAPITimeout
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvAPITimeout, envValue, DefaultAPITimeout)
		return DefaultAPITimeout
	}

	if duration < 1*time.Second {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1s\n", EnvAPITimeout, duration)
		return 1 * time.Second
	}
	if duration > 10*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 10m\n", EnvAPITimeout, duration)
		return 10 * time.Minute
	}

	return duration
}

// GetIndexCacheTTL returns the configured index cache TTL from
// PYBUN_INDEX_CACHE_TTL. If not set or invalid, returns
// DefaultIndexCacheTTL. Accepts duration strings like "30m", "1h", "24h".
func GetIndexCacheTTL() time.Duration {
	envValue := os.Getenv(EnvIndexCacheTTL)
	if envValue == "" {
		return DefaultIndexCacheTTL
	}

	duration, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			EnvIndexCacheTTL, envValue, DefaultIndexCacheTTL)
		return DefaultIndexCacheTTL
	}

	if duration < 1*time.Minute {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum 1m\n", EnvIndexCacheTTL, duration)
		return 1 * time.Minute
	}
	if duration > 7*24*time.Hour {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum 7d\n", EnvIndexCacheTTL, duration)
		return 7 * 24 * time.Hour
	}

	return duration
}

// ParseByteSize parses a human-readable byte size string into bytes.
// Accepts plain numbers (52428800), KB/K, MB/M, GB/G suffixes.
// Case-insensitive.
func ParseByteSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	s = strings.ToUpper(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	var numStr string
	var suffix string
	for i, c := range s {
		if c >= '0' && c <= '9' || c == '.' {
			numStr += string(c)
		} else {
			suffix = s[i:]
			break
		}
	}

	if numStr == "" {
		return 0, fmt.Errorf("invalid size format: %q", s)
	}

	num, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size number: %q", numStr)
	}

	var multiplier float64
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("invalid size suffix: %q", suffix)
	}

	return int64(num * multiplier), nil
}

// GetDownloadCacheSizeLimit returns the configured download cache size
// limit from PYBUN_DOWNLOAD_CACHE_SIZE_LIMIT, clamped to [1MB, 50GB].
func GetDownloadCacheSizeLimit() int64 {
	envValue := os.Getenv(EnvDownloadCacheSizeLimit)
	if envValue == "" {
		return DefaultDownloadCacheSizeLimit
	}

	size, err := ParseByteSize(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %dMB\n",
			EnvDownloadCacheSizeLimit, envValue, DefaultDownloadCacheSizeLimit/(1024*1024))
		return DefaultDownloadCacheSizeLimit
	}

	minSize := int64(1 * 1024 * 1024)
	maxSize := int64(50 * 1024 * 1024 * 1024)

	if size < minSize {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%d bytes), using minimum 1MB\n", EnvDownloadCacheSizeLimit, size)
		return minSize
	}
	if size > maxSize {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%d bytes), using maximum 50GB\n", EnvDownloadCacheSizeLimit, size)
		return maxSize
	}

	return size
}

// GetMaxConcurrency returns the configured Downloader concurrency from
// PYBUN_MAX_CONCURRENCY, clamped to [1, 64].
func GetMaxConcurrency() int {
	envValue := os.Getenv(EnvMaxConcurrency)
	if envValue == "" {
		return DefaultMaxConcurrency
	}

	n, err := strconv.Atoi(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %d\n",
			EnvMaxConcurrency, envValue, DefaultMaxConcurrency)
		return DefaultMaxConcurrency
	}

	if n < 1 {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%d), using minimum 1\n", EnvMaxConcurrency, n)
		return 1
	}
	if n > 64 {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%d), using maximum 64\n", EnvMaxConcurrency, n)
		return 64
	}

	return n
}

// DefaultHomeOverride can be set by the binary's main package (via
// ldflags) to change the default home directory for dev builds.
// PYBUN_HOME still takes precedence.
var DefaultHomeOverride string

// Config holds the directory layout the install pipeline reads and writes.
type Config struct {
	HomeDir          string // $PYBUN_HOME
	CacheDir         string // $PYBUN_HOME/cache
	IndexCacheDir    string // $PYBUN_HOME/cache/index
	DownloadCacheDir string // $PYBUN_HOME/cache/downloads (content-addressed)
	SiteDir          string // $PYBUN_HOME/site (unpacked packages)
	LockfilePath     string // ./pybun.lockb (relative to the invoking project, not HomeDir)
}

// DefaultConfig returns the default configuration, honoring PYBUN_HOME.
func DefaultConfig() (*Config, error) {
	pybunHome := os.Getenv(EnvPybunHome)
	if pybunHome == "" {
		if DefaultHomeOverride != "" {
			pybunHome = DefaultHomeOverride
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get user home directory: %w", err)
			}
			pybunHome = filepath.Join(home, ".pybun")
		}
	}

	return &Config{
		HomeDir:          pybunHome,
		CacheDir:         filepath.Join(pybunHome, "cache"),
		IndexCacheDir:    filepath.Join(pybunHome, "cache", "index"),
		DownloadCacheDir: filepath.Join(pybunHome, "cache", "downloads"),
		SiteDir:          filepath.Join(pybunHome, "site"),
		LockfilePath:     "pybun.lockb",
	}, nil
}

// EnsureDirectories creates all directories this Config names.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.HomeDir, c.CacheDir, c.IndexCacheDir, c.DownloadCacheDir, c.SiteDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ArtifactCachePath returns the content-addressed cache path for an
// artifact digest of the form "sha256:<hex>".
func (c *Config) ArtifactCachePath(digest string) string {
	const prefix = "sha256:"
	hex := strings.TrimPrefix(digest, prefix)
	return filepath.Join(c.DownloadCacheDir, "sha256", hex)
}
