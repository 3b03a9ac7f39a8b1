// Package config handles configuration loading and validation for the
// file-cloud server.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen string `yaml:"listen"` // host:port
}

// StorageConfig holds the physical chunk storage settings.
type StorageConfig struct {
	Root       string `yaml:"root"`        // chunk shard tree root
	ScratchDir string `yaml:"scratch_dir"` // staging area for directory archives
}

// DatabaseConfig holds the catalog database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file path
}

// CacheConfig holds the TTL cache settings shared by the shard-dir, path
// and session caches.
type CacheConfig struct {
	TTL      string `yaml:"ttl"`      // duration string, e.g. "24h"
	Capacity int    `yaml:"capacity"` // max entries per cache
}

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
}

const (
	defaultListen        = ":8080"
	defaultStorageRoot   = "build/data"
	defaultDatabasePath  = "build/filecloud.db"
	defaultCacheTTL      = 24 * time.Hour
	defaultCacheCapacity = 1000
)

// Load reads and parses a YAML configuration file, applying defaults for
// any missing values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	if c.Storage.Root == "" {
		c.Storage.Root = defaultStorageRoot
	}
	if c.Storage.ScratchDir == "" {
		c.Storage.ScratchDir = os.TempDir()
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDatabasePath
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = defaultCacheTTL.String()
	}
	if c.Cache.Capacity <= 0 {
		c.Cache.Capacity = defaultCacheCapacity
	}
}

// CacheTTL parses the cache TTL duration, falling back to the default on a
// malformed value.
func (c *Config) CacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d <= 0 {
		return defaultCacheTTL
	}
	return d
}
