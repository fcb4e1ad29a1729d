package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "wikindex"

	// DefaultSeedURL is the article the crawl starts from when none is given.
	DefaultSeedURL = "https://en.wikipedia.org/wiki/Association_football"

	// DefaultMaxPages bounds the number of URLs claimed in one crawl.
	DefaultMaxPages = 500

	// DefaultWorkers is the number of concurrent crawl workers.
	DefaultWorkers = 20

	// DefaultCrawlDelay is the pause each worker takes after a page.
	// Twenty workers at 200ms keep the request rate near 100 per second.
	DefaultCrawlDelay = 200 * time.Millisecond

	// DefaultTimeout bounds each HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies the crawler. Wikimedia asks bots to send
	// a descriptive agent with contact information.
	DefaultUserAgent = "wikindex/1.0 (+contact@example.com)"

	// DefaultMaxBodySize limits the response body read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultHistoryLimit is the number of runs `history` lists by default.
	DefaultHistoryLimit = 20
)

// Config holds all configuration options for wikindex.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed down explicitly.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., CrawlConfig, ReportConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// SeedURL is the article the crawl starts from.
	SeedURL string

	// MaxPages is the crawl budget in claimed URLs.
	MaxPages int

	// Workers is the number of concurrent crawl workers.
	Workers int

	// CrawlDelay is the pause each worker takes after a page.
	CrawlDelay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// RateLimit caps requests per second across all workers. 0 disables it.
	RateLimit float64

	// DBDir is the directory holding the SQLite corpus database.
	// Defaults to the XDG data directory (~/.local/share/wikindex on Linux).
	DBDir string

	// RedisAddr enables a shared visited set in Redis when non-empty.
	RedisAddr string

	// RedisTTL expires visited marks in Redis. Zero keeps them forever.
	RedisTTL time.Duration

	// MetricsAddr serves Prometheus metrics on this address when non-empty.
	MetricsAddr string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON.
	JSONLog bool

	// JSONReport selects the JSON report. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects the Markdown report. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the report to this path instead of stdout.
	ReportFile string

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, workers).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		SeedURL:     DefaultSeedURL,
		MaxPages:    DefaultMaxPages,
		Workers:     DefaultWorkers,
		CrawlDelay:  DefaultCrawlDelay,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		DBDir:       XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for wikindex.
// On Linux: ~/.local/share/wikindex
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for wikindex.
// On Linux: ~/.config/wikindex
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found as a sentinel error.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeed
	}
	u, err := url.Parse(c.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidSeed
	}

	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.RedisTTL < 0 {
		return ErrInvalidRedisTTL
	}
	return c.ValidateReport()
}

// ValidateReport checks only the report options. Commands that do not
// crawl use it instead of Validate.
func (c *Config) ValidateReport() error {
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
