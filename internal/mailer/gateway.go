package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"courseboard/internal/external"
	"courseboard/internal/types"
)

// maxReportedErrors caps the number of per-recipient error strings a
// BulkSendResult carries. Counts are always exact; only the detail list is
// truncated so a thousand-recipient outage does not balloon logs and
// database error columns.
const maxReportedErrors = 10

// BulkSendResult summarizes a fan-out send.
type BulkSendResult struct {
	Recipients int
	Sent       int
	Failed     int
	// Errors holds up to maxReportedErrors per-recipient failure
	// descriptions, in recipient order.
	Errors []string
}

// Summary renders the result as a short human-readable line for audit
// details and status records. Returns "" when nothing failed.
func (r BulkSendResult) Summary() string {
	if r.Failed == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d emails failed", r.Failed, r.Recipients)
}

// Gateway fans a rendered message out to a recipient list through an
// EmailProvider. One provider call per recipient; a failed recipient is
// recorded and the loop continues. The gateway does not retry (the
// provider's transport layer owns retries) and does not persist anything.
type Gateway struct {
	provider external.EmailProvider
	renderer *Renderer
	from     types.EmailAddress
	logger   *slog.Logger
}

// NewGateway creates a Gateway sending through the given provider with the
// given sender identity. Pass nil logger to use slog.Default().
func NewGateway(provider external.EmailProvider, renderer *Renderer, from types.EmailAddress, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		provider: provider,
		renderer: renderer,
		from:     from,
		logger:   logger,
	}
}

// SendBulk renders the message once per recipient (so greetings are
// personalized) and sends sequentially. The returned result always reflects
// every recipient; err is non-nil only for render-level failures that
// prevent any sending at all.
func (g *Gateway) SendBulk(
	ctx context.Context,
	kind TemplateKind,
	data TemplateData,
	recipients []types.Recipient,
	referenceID string,
) (BulkSendResult, error) {
	result := BulkSendResult{Recipients: len(recipients)}

	for _, rec := range recipients {
		perRecipient := data
		perRecipient.RecipientName = rec.Name

		rendered, err := g.renderer.Render(kind, perRecipient)
		if err != nil {
			// Render failure is structural, not per-recipient; every
			// subsequent recipient would fail identically.
			return result, err
		}

		_, err = g.provider.Send(ctx, types.SendInput{
			To:          rec.Email,
			ToName:      rec.Name,
			From:        g.from,
			Subject:     rendered.Subject,
			BodyHTML:    rendered.BodyHTML,
			BodyText:    rendered.BodyText,
			ReferenceID: referenceID,
		})
		if err != nil {
			result.Failed++
			if len(result.Errors) < maxReportedErrors {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rec.Email, err))
			}
			g.logger.WarnContext(ctx, "email send failed",
				"recipient_id", rec.ID,
				"reference_id", referenceID,
				"error", err,
			)
			continue
		}
		result.Sent++
	}

	return result, nil
}
