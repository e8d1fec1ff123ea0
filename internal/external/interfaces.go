package external

import (
	"context"

	"courseboard/internal/types"
)

// EmailProvider is the outbound email delivery abstraction. Implementations
// (SendGrid, AWS SES) receive fully rendered content and return a provider
// message ID on success. Providers do no templating and no retry bookkeeping
// beyond what their transport layer gives them.
type EmailProvider interface {
	Send(ctx context.Context, input types.SendInput) (string, error)
}
