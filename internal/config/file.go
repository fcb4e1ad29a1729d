package config

import (
	"fmt"
	"time"
)

// File represents the structure of the .wikindex configuration file.
// Every field is optional; unset fields leave the current value alone.
type File struct {
	Crawl   CrawlFile   `yaml:"crawl,omitempty"`
	Storage StorageFile `yaml:"storage,omitempty"`
	Metrics MetricsFile `yaml:"metrics,omitempty"`
}

// CrawlFile holds crawl settings.
type CrawlFile struct {
	Seed        string  `yaml:"seed,omitempty"`
	MaxPages    int     `yaml:"maxPages,omitempty"`
	Workers     int     `yaml:"workers,omitempty"`
	Delay       string  `yaml:"delay,omitempty"`
	Timeout     string  `yaml:"timeout,omitempty"`
	UserAgent   string  `yaml:"userAgent,omitempty"`
	MaxBodySize int64   `yaml:"maxBodySize,omitempty"`
	RateLimit   float64 `yaml:"rateLimit,omitempty"`
}

// StorageFile holds storage settings.
type StorageFile struct {
	DBDir    string `yaml:"dbDir,omitempty"`
	Redis    string `yaml:"redis,omitempty"`
	RedisTTL string `yaml:"redisTTL,omitempty"`
}

// MetricsFile holds metrics settings.
type MetricsFile struct {
	Addr string `yaml:"addr,omitempty"`
}

// Flag names that File.Apply maps its fields to.
const (
	FlagSeed        = "seed"
	FlagMaxPages    = "max-pages"
	FlagWorkers     = "workers"
	FlagCrawlDelay  = "crawl-delay"
	FlagTimeout     = "timeout"
	FlagUserAgent   = "user-agent"
	FlagMaxBodySize = "max-body-size"
	FlagRateLimit   = "rate-limit"
	FlagDBDir       = "db-dir"
	FlagRedis       = "redis"
	FlagRedisTTL    = "redis-ttl"
	FlagMetricsAddr = "metrics-addr"
)

// Apply copies the values set in the file into cfg. Values whose flag was
// set explicitly on the command line are left alone; changed reports that.
// A nil changed treats every flag as unset.
func (f *File) Apply(cfg *Config, changed func(flag string) bool) error {
	if changed == nil {
		changed = func(string) bool { return false }
	}
	use := func(flag string, set bool) bool {
		return set && !changed(flag)
	}

	c := f.Crawl
	if use(FlagSeed, c.Seed != "") {
		cfg.SeedURL = c.Seed
	}
	if use(FlagMaxPages, c.MaxPages != 0) {
		cfg.MaxPages = c.MaxPages
	}
	if use(FlagWorkers, c.Workers != 0) {
		cfg.Workers = c.Workers
	}
	if use(FlagCrawlDelay, c.Delay != "") {
		d, err := time.ParseDuration(c.Delay)
		if err != nil {
			return fmt.Errorf("crawl.delay: %w", err)
		}
		cfg.CrawlDelay = d
	}
	if use(FlagTimeout, c.Timeout != "") {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("crawl.timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if use(FlagUserAgent, c.UserAgent != "") {
		cfg.UserAgent = c.UserAgent
	}
	if use(FlagMaxBodySize, c.MaxBodySize != 0) {
		cfg.MaxBodySize = c.MaxBodySize
	}
	if use(FlagRateLimit, c.RateLimit != 0) {
		cfg.RateLimit = c.RateLimit
	}
	if use(FlagDBDir, f.Storage.DBDir != "") {
		cfg.DBDir = f.Storage.DBDir
	}
	if use(FlagRedis, f.Storage.Redis != "") {
		cfg.RedisAddr = f.Storage.Redis
	}
	if use(FlagRedisTTL, f.Storage.RedisTTL != "") {
		d, err := time.ParseDuration(f.Storage.RedisTTL)
		if err != nil {
			return fmt.Errorf("storage.redisTTL: %w", err)
		}
		cfg.RedisTTL = d
	}
	if use(FlagMetricsAddr, f.Metrics.Addr != "") {
		cfg.MetricsAddr = f.Metrics.Addr
	}
	return nil
}
