// Package notifxsmtp sends email through a plain SMTP relay.
package notifxsmtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Abraxas-365/perimeter/pkg/notifx"
)

type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// New creates the SMTP sender. user may be empty for unauthenticated relays.
func New(host string, port int, user, pass, fromAddress string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		auth: auth,
		from: fromAddress,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg notifx.Email) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", s.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	if msg.HTMLBody != "" {
		b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.HTMLBody)
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.TextBody)
	}

	if err := smtp.SendMail(s.addr, s.auth, s.from, msg.To, []byte(b.String())); err != nil {
		return notifx.ErrRegistry.NewWithCause(notifx.CodeSendFailed, err)
	}
	return nil
}
