// Package notifx delivers outbound notifications. The identity service never
// calls a provider directly; it enqueues through the Dispatcher and the
// notifier worker drains the queue into whichever Sender config selects.
package notifx

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/perimeter/pkg/errx"
)

// Email is one outbound message.
type Email struct {
	To       []string `json:"to"`
	Subject  string   `json:"subject"`
	TextBody string   `json:"text_body,omitempty"`
	HTMLBody string   `json:"html_body,omitempty"`
}

// Sender is the provider contract.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Validate rejects unsendable messages before they reach a provider.
func (m Email) Validate() error {
	if len(m.To) == 0 {
		return ErrRegistry.NewWithDetail(CodeInvalid, "no recipients")
	}
	if m.Subject == "" {
		return ErrRegistry.NewWithDetail(CodeInvalid, "empty subject")
	}
	if m.TextBody == "" && m.HTMLBody == "" {
		return ErrRegistry.NewWithDetail(CodeInvalid, "empty body")
	}
	return nil
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("NOTIFX")

var (
	CodeInvalid    = ErrRegistry.Register("INVALID", errx.KindValidation, http.StatusBadRequest, "Unsendable message")
	CodeSendFailed = ErrRegistry.Register("SEND_FAILED", errx.KindUpstream, http.StatusBadGateway, "Provider send failed")
)
