package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envNamespace = "CREWDECK"

// Env holds environment-variable overrides applied on top of the YAML
// config. Credentials in particular are usually supplied this way so they
// stay out of checked-in config files.
type Env struct {
	Port            int    `envconfig:"PORT"`
	PollInterval    int    `envconfig:"POLL_INTERVAL_SECONDS"`
	StatusToken     string `envconfig:"STATUS_TOKEN"`
	ActivityToken   string `envconfig:"ACTIVITY_TOKEN"`
	SlackToken      string `envconfig:"SLACK_TOKEN"`
	DiscordToken    string `envconfig:"DISCORD_TOKEN"`
	ArchiveDatabase string `envconfig:"ARCHIVE_DATABASE"`
}

// LoadEnv reads CREWDECK_* environment variables.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(envNamespace, &env); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	return &env, nil
}

// Apply overlays non-zero env values onto cfg.
func (e *Env) Apply(cfg *Config) {
	if e == nil || cfg == nil {
		return
	}
	if e.Port != 0 {
		cfg.Server.Port = e.Port
	}
	if e.PollInterval != 0 {
		cfg.Poll.IntervalSeconds = e.PollInterval
	}
	if e.StatusToken != "" {
		cfg.Sources.Status.Token = e.StatusToken
	}
	if e.ActivityToken != "" {
		cfg.Sources.Activity.Token = e.ActivityToken
	}
	if e.SlackToken != "" {
		cfg.Notify.Slack.Token = e.SlackToken
	}
	if e.DiscordToken != "" {
		cfg.Notify.Discord.Token = e.DiscordToken
	}
	if e.ArchiveDatabase != "" {
		cfg.Archive.Database = e.ArchiveDatabase
	}
}
