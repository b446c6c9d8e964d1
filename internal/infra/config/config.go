package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/datallboy/godl/internal/domain"
)

const DefaultPath = "godl.yaml"

type Config struct {
	Download   DownloadConfig   `mapstructure:"download" yaml:"download"`
	Transport  TransportConfig  `mapstructure:"transport" yaml:"transport"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`

	Port string `mapstructure:"port" yaml:"port"`

	Tasks      []TaskConfig `mapstructure:"tasks" yaml:"tasks"`
	FetchTasks []string     `mapstructure:"fetch_tasks" yaml:"fetch_tasks"`
}

type DownloadConfig struct {
	Workers    int    `mapstructure:"workers" yaml:"workers"`
	OutDir     string `mapstructure:"out_dir" yaml:"out_dir"`
	ReportPath string `mapstructure:"report_path" yaml:"report_path"`
}

type TransportConfig struct {
	UserAgent          string        `mapstructure:"user_agent" yaml:"user_agent"`
	DNSCacheTTL        time.Duration `mapstructure:"dns_cache_ttl" yaml:"dns_cache_ttl"`
	LowSpeedLimit      int64         `mapstructure:"low_speed_limit" yaml:"low_speed_limit"`
	LowSpeedTime       time.Duration `mapstructure:"low_speed_time" yaml:"low_speed_time"`
	MaxRedirects       int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	IPv4Only           bool          `mapstructure:"ipv4_only" yaml:"ipv4_only"`
	DigestMaxBytes     int64         `mapstructure:"digest_max_bytes" yaml:"digest_max_bytes"`
}

type ExtractionConfig struct {
	Enabled   bool `mapstructure:"enabled" yaml:"enabled"`
	NativeZip bool `mapstructure:"native_zip" yaml:"native_zip"`
}

type LogConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	Level         string `mapstructure:"level" yaml:"level"`
	IncludeStdout bool   `mapstructure:"include_stdout" yaml:"include_stdout"`
}

type StoreConfig struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`
	SQLitePath  string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
}

// TaskConfig is one download entry of the batch task list.
type TaskConfig struct {
	URL         string `mapstructure:"url" yaml:"url"`
	DigestURL   string `mapstructure:"digest_url" yaml:"digest_url"`
	Digest      string `mapstructure:"digest" yaml:"digest"`
	Destination string `mapstructure:"destination" yaml:"destination"`
	Extract     bool   `mapstructure:"extract" yaml:"extract"`
	Tag         string `mapstructure:"tag" yaml:"tag"`
}

// Request converts the task into a download request.
func (t TaskConfig) Request() domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:         t.URL,
		DigestURL:   t.DigestURL,
		Digest:      t.Digest,
		Destination: t.Destination,
		Extract:     t.Extract,
		Tag:         t.Tag,
	}
}

// Load reads the YAML config at path. A missing file is only an error when
// the caller named it explicitly; the default path falls back to defaults and
// environment variables.
func Load(path string) (*Config, error) {
	readFile := true

	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if path != DefaultPath {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		// Docker images mount their config under /config
		if _, errEx := os.Stat("/config/" + DefaultPath); errEx == nil {
			path = "/config/" + DefaultPath
		} else {
			readFile = false
		}
	}

	v := viper.New()

	// Set Defaults
	v.SetDefault("port", "8080")
	v.SetDefault("download.workers", 4)
	v.SetDefault("download.out_dir", "./downloads")
	v.SetDefault("download.report_path", "")
	v.SetDefault("transport.user_agent", "godl/1.0")
	v.SetDefault("transport.dns_cache_ttl", 300*time.Second)
	v.SetDefault("transport.low_speed_limit", 1)
	v.SetDefault("transport.low_speed_time", 5*time.Second)
	v.SetDefault("transport.max_redirects", 5)
	v.SetDefault("transport.insecure_skip_verify", true)
	v.SetDefault("transport.ipv4_only", true)
	v.SetDefault("transport.digest_max_bytes", 64*1024)
	v.SetDefault("extraction.enabled", true)
	v.SetDefault("extraction.native_zip", true)
	v.SetDefault("log.path", "godl.log")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.include_stdout", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "./data/godl.db")

	if readFile {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	// Support Environment Variables
	v.SetEnvPrefix("GODL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Download.Workers < 0 {
		return errors.New("download.workers cannot be negative")
	}

	if c.Download.OutDir == "" {
		c.Download.OutDir = "./downloads"
	}

	if c.Transport.LowSpeedTime <= 0 {
		c.Transport.LowSpeedTime = 5 * time.Second
	}

	if c.Transport.MaxRedirects <= 0 {
		c.Transport.MaxRedirects = 5
	}

	if c.Transport.DigestMaxBytes <= 0 {
		c.Transport.DigestMaxBytes = 64 * 1024
	}

	switch c.Store.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return errors.New("store.postgres_dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("store.driver %q is not supported (sqlite, postgres, none)", c.Store.Driver)
	}

	for i, t := range c.Tasks {
		if t.URL == "" {
			return fmt.Errorf("tasks[%d]: url is required", i)
		}
		if t.Destination == "" {
			return fmt.Errorf("tasks[%d]: destination is required", i)
		}
	}

	return nil
}
