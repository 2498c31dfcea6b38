// Package slack is the Slack channel plugin.
package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/nextlevelbuilder/pairgate/internal/config"
)

// Channel delivers pairing notifications through the Slack Web API.
type Channel struct{}

func New() *Channel { return &Channel{} }

func (c *Channel) Name() string { return "slack" }

// NotifyPairingApproved posts an approval notice to the operator channel.
func (c *Channel) NotifyPairingApproved(ctx context.Context, id string, cfg *config.Config) error {
	scfg := cfg.Channels.Slack
	if scfg.BotToken == "" || scfg.OperatorChannel == "" {
		return fmt.Errorf("slack channel not configured")
	}

	api := slackapi.New(scfg.BotToken)
	text := fmt.Sprintf("Pairing request %s approved.", id)
	_, _, err := api.PostMessageContext(ctx, scfg.OperatorChannel,
		slackapi.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}
