// Package notifxconsole logs emails instead of sending them. Development
// default.
package notifxconsole

import (
	"context"
	"strings"

	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/Abraxas-365/perimeter/pkg/notifx"
)

type ConsoleSender struct{}

// New creates the console sender.
func New() *ConsoleSender { return &ConsoleSender{} }

func (s *ConsoleSender) Send(ctx context.Context, msg notifx.Email) error {
	body := msg.TextBody
	if body == "" {
		body = msg.HTMLBody
	}
	logx.WithFields(logx.Fields{
		"to":      strings.Join(msg.To, ","),
		"subject": msg.Subject,
	}).Infof("notifx: %s", body)
	return nil
}
