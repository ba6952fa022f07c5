package main

import (
	"context"

	"github.com/zulandar/crewdeck/internal/config"
	"github.com/zulandar/crewdeck/internal/notify"
	"github.com/zulandar/crewdeck/internal/notify/discord"
	"github.com/zulandar/crewdeck/internal/notify/slack"
)

// buildRouter assembles the chat fan-out from config. Adapters without a
// token are skipped; returns nil when none are configured.
func buildRouter(ctx context.Context, cfg config.NotifyConfig) (*notify.Router, error) {
	var adapters []notify.Adapter

	if cfg.Slack.Token != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Slack.Token,
			ChannelID: cfg.Slack.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if cfg.Discord.Token != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.Token,
			ChannelID: cfg.Discord.Channel,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if len(adapters) == 0 {
		return nil, nil
	}

	router := notify.NewRouter(adapters...)
	if err := router.Connect(ctx); err != nil {
		return nil, err
	}
	return router, nil
}
