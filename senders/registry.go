package senders

import (
	"context"
	"net/http"

	"github.com/fiffu/listingwatch/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sender delivers one change message to a notification channel and returns
// the platform's message ID.
type Sender interface {
	Send(ctx context.Context, subject, body string) (string, error)
}

type Registry map[string]Sender

func NewSenderRegistry(lc fx.Lifecycle, log *zap.Logger, cfg *config.Config, transport http.RoundTripper) Registry {
	base := base{log, cfg, transport}
	registry := Registry{
		"discord": newDiscordSender(base),
	}
	if cfg.MailgunEnabled() {
		registry["email"] = &mailgunSender{base}
	} else {
		log.Sugar().Info("Email delivery is disabled since Mailgun is not configured")
	}
	return registry
}

type base struct {
	log       *zap.Logger
	cfg       *config.Config
	transport http.RoundTripper
}
