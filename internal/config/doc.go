// Package config provides configuration structures and utilities for wikindex.
// It defines the crawl, indexing, storage and report options, their defaults,
// and the optional YAML configuration file.
package config
