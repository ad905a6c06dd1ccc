package senders

import (
	"context"
	"net/http"
	"time"

	"github.com/fiffu/listingwatch/senders/email"
	"github.com/mailgun/mailgun-go/v4"
)

type mailgunSender struct {
	base
}

func (e *mailgunSender) Send(ctx context.Context, subject, body string) (string, error) {
	mg := mailgun.NewMailgun(e.cfg.Mailgun.Domain, e.cfg.Mailgun.APIKey)
	mg.SetClient(&http.Client{Transport: e.transport})

	format := &email.ChangeEmailFormat{Target: e.cfg.TargetURL, Title: subject, Message: body}

	// Create message with the plain text body first.
	message := mg.NewMessage(e.cfg.Mailgun.SenderFrom, format.Subject(), body, e.cfg.Mailgun.Recipient)
	// SetHtml with the payload proper. This will assign the MIME type properly.
	message.SetHtml(format.Body())

	timeout := time.Duration(e.cfg.Mailgun.TimeoutSecs) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, id, err := mg.Send(ctx, message)
	return id, err
}
