// Package telegram is the Telegram channel plugin.
package telegram

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/pairgate/internal/config"
)

// Channel delivers pairing notifications through the Telegram Bot API.
type Channel struct{}

func New() *Channel { return &Channel{} }

func (c *Channel) Name() string { return "telegram" }

// NotifyPairingApproved sends an approval notice to the operator chat.
func (c *Channel) NotifyPairingApproved(ctx context.Context, id string, cfg *config.Config) error {
	tcfg := cfg.Channels.Telegram
	if tcfg.BotToken == "" || tcfg.OperatorChatID == 0 {
		return fmt.Errorf("telegram channel not configured")
	}

	bot, err := telego.NewBot(tcfg.BotToken, telego.WithDiscardLogger())
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}

	text := fmt.Sprintf("Pairing request %s approved.", id)
	if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(tcfg.OperatorChatID), text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
