package senders

import (
	"context"
	"fmt"
	"sync"

	"github.com/carlmjohnson/requests"
)

// Text channels have type 0 in the Discord API.
const discordTextChannel = 0

type discordSender struct {
	base

	mu        sync.Mutex
	channelID string
}

type discordGuild struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type discordChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type int    `json:"type"`
}

type discordMessage struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
}

func newDiscordSender(b base) *discordSender {
	return &discordSender{base: b, channelID: b.cfg.Discord.ChannelID}
}

// Send posts body to the configured channel. The subject is not shown on Discord.
func (d *discordSender) Send(ctx context.Context, subject, body string) (string, error) {
	channelID, err := d.resolveChannel(ctx)
	if err != nil {
		return "", err
	}

	var sent discordMessage
	err = d.request().
		Pathf("channels/%s/messages", channelID).
		BodyJSON(&discordMessage{Content: body}).
		ToJSON(&sent).
		Fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("discord: post message: %w", err)
	}
	return sent.ID, nil
}

func (d *discordSender) request() *requests.Builder {
	return requests.URL(d.cfg.Discord.APIBase+"/").
		Transport(d.transport).
		Header("Authorization", "Bot "+d.cfg.Discord.Token)
}

// resolveChannel finds a text channel with the configured name in any guild
// the bot belongs to, unless a channel ID was configured.
func (d *discordSender) resolveChannel(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.channelID != "" {
		return d.channelID, nil
	}

	var guilds []discordGuild
	if err := d.request().Path("users/@me/guilds").ToJSON(&guilds).Fetch(ctx); err != nil {
		return "", fmt.Errorf("discord: list guilds: %w", err)
	}

	name := d.cfg.Discord.ChannelName
	for _, guild := range guilds {
		var channels []discordChannel
		if err := d.request().Pathf("guilds/%s/channels", guild.ID).ToJSON(&channels).Fetch(ctx); err != nil {
			return "", fmt.Errorf("discord: list channels of guild %s: %w", guild.Name, err)
		}
		for _, ch := range channels {
			if ch.Type == discordTextChannel && ch.Name == name {
				d.log.Sugar().Infow("Resolved discord channel", "guild", guild.Name, "channel", ch.Name, "channel_id", ch.ID)
				d.channelID = ch.ID
				return ch.ID, nil
			}
		}
	}
	return "", fmt.Errorf("discord: no text channel named %q", name)
}
