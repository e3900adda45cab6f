package external

import (
	"context"

	"mergington/internal/types"
)

// EmailProvider abstracts the outbound mail vendor. Implementations return
// the provider-assigned message ID on success.
type EmailProvider interface {
	// Send transmits one email to the recipients in input.
	Send(ctx context.Context, input types.SendInput) (string, error)

	// Configured reports whether real credentials back this provider.
	// The delivery worker short-circuits to a "not configured" outcome
	// when false instead of attempting a send.
	Configured() bool
}
