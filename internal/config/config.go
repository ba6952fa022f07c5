// Package config provides YAML-based configuration loading for Crewdeck.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source providers.
const (
	ProviderHTTP = "http"
	ProviderGist = "gist"
	ProviderFile = "file"
)

// Config is the top-level Crewdeck configuration, loaded from crewdeck.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Poll    PollConfig    `yaml:"poll"`
	Sources SourcesConfig `yaml:"sources"`
	Archive ArchiveConfig `yaml:"archive"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServerConfig holds settings for the aggregation HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PollConfig holds the synchronizer poll interval and the aggregator's
// per-source cache window, both in seconds.
type PollConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// Interval returns the poll interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// CacheTTL returns the per-source cache window as a duration.
func (p PollConfig) CacheTTL() time.Duration {
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// SourcesConfig names the two upstream documents.
type SourcesConfig struct {
	Status   SourceConfig `yaml:"status"`
	Activity SourceConfig `yaml:"activity"`
}

// SourceConfig describes one upstream JSON document. Provider selects which
// fields apply: "http" uses URL, "gist" uses GistID/GistFile/Token, "file"
// uses Path.
type SourceConfig struct {
	Provider string `yaml:"provider"`
	URL      string `yaml:"url"`
	GistID   string `yaml:"gist_id"`
	GistFile string `yaml:"gist_file"`
	Token    string `yaml:"token"`
	Path     string `yaml:"path"`
}

// ArchiveConfig holds snapshot archive settings. An empty driver disables
// the archive.
type ArchiveConfig struct {
	Driver   string `yaml:"driver"` // "sqlite", "mysql", or "" (disabled)
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Keep     int    `yaml:"keep"` // rows retained by pruning
}

// NotifyConfig holds chat fan-out settings. Adapters with empty tokens are
// not started.
type NotifyConfig struct {
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
	DigestCron string        `yaml:"digest_cron"` // 5-field cron expression, empty disables the digest
}

// SlackConfig holds Slack Web API credentials.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Poll.IntervalSeconds == 0 {
		c.Poll.IntervalSeconds = 30
	}
	if c.Poll.CacheTTLSeconds == 0 {
		c.Poll.CacheTTLSeconds = 30
	}
	if c.Sources.Status.Provider == "" {
		c.Sources.Status.Provider = ProviderHTTP
	}
	if c.Sources.Activity.Provider == "" {
		c.Sources.Activity.Provider = ProviderHTTP
	}
	if c.Archive.Driver == "sqlite" && c.Archive.Path == "" {
		c.Archive.Path = "crewdeck.db"
	}
	if c.Archive.Driver == "mysql" {
		if c.Archive.Host == "" {
			c.Archive.Host = "127.0.0.1"
		}
		if c.Archive.Port == 0 {
			c.Archive.Port = 3306
		}
		if c.Archive.Database == "" {
			c.Archive.Database = "crewdeck"
		}
	}
	if c.Archive.Keep == 0 {
		c.Archive.Keep = 1000
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if msg := validateSource("sources.status", c.Sources.Status); msg != "" {
		errs = append(errs, msg)
	}
	if msg := validateSource("sources.activity", c.Sources.Activity); msg != "" {
		errs = append(errs, msg)
	}
	switch c.Archive.Driver {
	case "", "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("archive.driver %q is not supported (sqlite, mysql)", c.Archive.Driver))
	}
	if c.Notify.Slack.Token != "" && c.Notify.Slack.Channel == "" {
		errs = append(errs, "notify.slack.channel is required when a slack token is set")
	}
	if c.Notify.Discord.Token != "" && c.Notify.Discord.Channel == "" {
		errs = append(errs, "notify.discord.channel is required when a discord token is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateSource checks one upstream source block, returning an error
// message or "".
func validateSource(name string, s SourceConfig) string {
	switch s.Provider {
	case ProviderHTTP:
		if s.URL == "" {
			return name + ".url is required for the http provider"
		}
	case ProviderGist:
		if s.GistID == "" {
			return name + ".gist_id is required for the gist provider"
		}
	case ProviderFile:
		if s.Path == "" {
			return name + ".path is required for the file provider"
		}
	default:
		return fmt.Sprintf("%s.provider %q is not supported (http, gist, file)", name, s.Provider)
	}
	return ""
}
