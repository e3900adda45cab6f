package external

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mergington/internal/notify/email"
	"mergington/internal/types"
)

// DisabledProvider is the EmailProvider used when no mail credentials are
// configured. Every send fails with ErrCodeEmailNotConfigured so callers
// can record the outcome without crashing.
type DisabledProvider struct{}

var _ EmailProvider = (*DisabledProvider)(nil)

func (DisabledProvider) Configured() bool { return false }

func (DisabledProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	return "", types.NewAppError(
		types.ErrCodeEmailNotConfigured,
		"email service is not configured",
		nil,
	)
}

// StubProvider logs sends instead of delivering them. Used for local
// development when a MAIL_API_KEY is present but MAIL_PROVIDER=stub.
type StubProvider struct {
	logger types.Logger
}

var _ EmailProvider = (*StubProvider)(nil)

func NewStubProvider(logger types.Logger) *StubProvider {
	return &StubProvider{logger: logger}
}

func (p *StubProvider) Configured() bool { return true }

func (p *StubProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	messageID := fmt.Sprintf("stub-%s", uuid.NewString())
	p.logger.Info("stub email send",
		"message_id", messageID,
		"to", email.RedactEmails(input.To),
		"cc", email.RedactEmail(input.Cc),
		"subject", input.Subject,
		"body_bytes", len(input.BodyHTML),
	)
	return messageID, nil
}
