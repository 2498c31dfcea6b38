// Package discord is the Discord channel plugin.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/pairgate/internal/config"
)

// Channel delivers pairing notifications through the Discord REST API.
type Channel struct{}

func New() *Channel { return &Channel{} }

func (c *Channel) Name() string { return "discord" }

// NotifyPairingApproved sends an approval notice to the operator channel.
func (c *Channel) NotifyPairingApproved(ctx context.Context, id string, cfg *config.Config) error {
	dcfg := cfg.Channels.Discord
	if dcfg.BotToken == "" || dcfg.OperatorChannelID == "" {
		return fmt.Errorf("discord channel not configured")
	}

	session, err := discordgo.New("Bot " + dcfg.BotToken)
	if err != nil {
		return fmt.Errorf("discord session init: %w", err)
	}

	text := fmt.Sprintf("Pairing request %s approved.", id)
	_, err = session.ChannelMessageSend(dcfg.OperatorChannelID, text,
		discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
