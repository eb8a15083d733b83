// Package config loads npmburst settings from a TOML file.
//
// Every field has a default, so a missing file is not an error unless its
// path was given explicitly. Command-line flags override file values; that
// merge happens in the CLI.
//
//	[cache]
//	backend = "redis"
//	ttl = "6h"
//
//	[cache.redis]
//	addr = "localhost:6379"
//
//	[server]
//	addr = ":8080"
//
//	[defaults]
//	package = "react"
//	threshold = 0.05
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/npmburst/pkg/cache"
	errs "github.com/matzehuels/npmburst/pkg/errors"
	"github.com/matzehuels/npmburst/pkg/integrations/npm"
	"github.com/matzehuels/npmburst/pkg/urlstate"
)

// AppName names the configuration and cache directories.
const AppName = "npmburst"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Config is the contents of config.toml.
type Config struct {
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
	Defaults DefaultsConfig `toml:"defaults"`
	Registry RegistryConfig `toml:"registry"`
}

// CacheConfig selects and configures the cache backend.
type CacheConfig struct {
	Backend string   `toml:"backend"`
	Dir     string   `toml:"dir"`
	TTL     Duration `toml:"ttl"`
	Redis   struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
		Prefix   string `toml:"prefix"`
	} `toml:"redis"`
	Mongo struct {
		URI        string `toml:"uri"`
		Database   string `toml:"database"`
		Collection string `toml:"collection"`
	} `toml:"mongo"`
}

// ServerConfig configures `npmburst serve`.
type ServerConfig struct {
	Addr    string   `toml:"addr"`
	Timeout Duration `toml:"timeout"`
}

// DefaultsConfig holds the chart shown when a request names nothing.
type DefaultsConfig struct {
	Package   string  `toml:"package"`
	Threshold float64 `toml:"threshold"`
}

// RegistryConfig points at the npm downloads API.
type RegistryConfig struct {
	BaseURL string `toml:"base_url"`
}

// Duration is a time.Duration written as a string such as "90s" or "6h".
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText writes the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file exists.
func Default() Config {
	var c Config
	c.Cache.Backend = BackendFile
	c.Cache.TTL = Duration{cache.TTLDownloads}
	c.Cache.Redis.Addr = "localhost:6379"
	c.Cache.Redis.Prefix = cache.DefaultRedisPrefix
	c.Cache.Mongo.URI = "mongodb://localhost:27017"
	c.Cache.Mongo.Database = cache.DefaultMongoDatabase
	c.Cache.Mongo.Collection = cache.DefaultMongoCollection
	c.Server.Addr = ":8080"
	c.Server.Timeout = Duration{30 * time.Second}
	c.Defaults.Package = urlstate.DefaultPackage
	c.Defaults.Threshold = urlstate.DefaultThreshold
	c.Registry.BaseURL = npm.DefaultBaseURL
	return c
}

// Load reads the file at path on top of [Default]. An empty path means
// [Path]; a missing file there yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return cfg, errs.Wrap(errs.ErrCodeInvalidInput, err, "read config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendMongo, BackendNone:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "unknown cache backend %q (want file, redis, mongo or none)", c.Cache.Backend)
	}
	if c.Cache.TTL.Duration < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "cache ttl must not be negative")
	}
	if c.Defaults.Package != "" {
		if err := errs.ValidatePackageName(c.Defaults.Package); err != nil {
			return err
		}
	}
	if err := errs.ValidateThreshold(c.Defaults.Threshold); err != nil {
		return err
	}
	if c.Registry.BaseURL != "" {
		if err := errs.ValidateURL(c.Registry.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

// OpenCache connects to the configured backend. The file backend falls back
// to [CacheDir] when no directory is set.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
			Prefix:   c.Cache.Redis.Prefix,
		})
	case BackendMongo:
		return cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:        c.Cache.Mongo.URI,
			Database:   c.Cache.Mongo.Database,
			Collection: c.Cache.Mongo.Collection,
		})
	}
	dir := c.Cache.Dir
	if dir == "" {
		d, err := CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		dir = d
	}
	return cache.NewFileCache(dir)
}

// Path returns the default config file location,
// $XDG_CONFIG_HOME/npmburst/config.toml or ~/.config/npmburst/config.toml.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName, "config.toml"), nil
}

// CacheDir returns the file cache directory using XDG standard (~/.cache/npmburst/).
func CacheDir() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", AppName), nil
}
