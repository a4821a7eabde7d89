// Package gateway provides messaging-channel implementations of
// model.Gateway. The real channel transport (webhooks, signatures) lives
// outside this service; Console is what local runs use.
package gateway

import (
	"context"

	"github.com/meterwatch-core/server/internal/monitor/model"
	logx "github.com/meterwatch-core/server/pkg/logger"
)

// Console writes outbound replies to the log instead of a real channel.
type Console struct{}

func NewConsole() *Console {
	return &Console{}
}

func (c *Console) Send(ctx context.Context, senderID string, text string) error {
	logx.Info().
		Str("sender_id", senderID).
		Str("text", text).
		Msg("Outbound reply")
	return nil
}

var _ model.Gateway = (*Console)(nil)
