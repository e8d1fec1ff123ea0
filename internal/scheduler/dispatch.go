package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"courseboard/internal/mailer"
	"courseboard/internal/types"
)

// errNoRecipients is the terminal failure reason recorded when a scheduled
// email's recipient list resolves to zero deliverable users. The text is
// stored verbatim in the record's error column.
var errNoRecipients = errors.New("No valid recipients found")

// DispatchWorker sends scheduled emails whose time has arrived and, for
// emails linked to an unpublished assignment, publishes the assignment
// immediately after the send. That explicit post-send publish, together
// with the publish worker deferring email-linked assignments, is what
// guarantees the email never trails the publish.
type DispatchWorker struct {
	emails        EmailStore
	assignments   AssignmentStore
	notifications NotificationStore
	audit         AuditLog
	directory     Directory
	gateway       EmailGateway
	batchLimit    int
	logger        *slog.Logger
}

// NewDispatchWorker creates a DispatchWorker. Pass batchLimit <= 0 to use
// DefaultBatchLimit, and a nil logger to use slog.Default().
func NewDispatchWorker(
	emails EmailStore,
	assignments AssignmentStore,
	notifications NotificationStore,
	audit AuditLog,
	directory Directory,
	gateway EmailGateway,
	batchLimit int,
	logger *slog.Logger,
) *DispatchWorker {
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchWorker{
		emails:        emails,
		assignments:   assignments,
		notifications: notifications,
		audit:         audit,
		directory:     directory,
		gateway:       gateway,
		batchLimit:    batchLimit,
		logger:        logger,
	}
}

// Run executes one dispatch pass at the given time. The returned report is
// always usable; err is non-nil only when the selection query itself fails.
//
// Every due email leaves this pass in a terminal state: sent (possibly with
// a partial-failure summary) or failed with the error text. Failures are
// terminal, not retried.
func (w *DispatchWorker) Run(ctx context.Context, now time.Time) (DispatchReport, error) {
	report := DispatchReport{Errors: []string{}}

	due, err := w.emails.ListDue(ctx, now, w.batchLimit)
	if err != nil {
		return report, fmt.Errorf("listing due scheduled emails: %w", err)
	}

	for _, e := range due {
		sent, err := w.processItem(ctx, e, now)
		if err == nil {
			report.Processed++
			continue
		}

		w.logger.ErrorContext(ctx, "failed to process scheduled email",
			"scheduled_email_id", e.ID,
			"sent", sent,
			"error", err,
		)
		report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", e.Subject, err))

		// A failure before the record reached SENT marks it terminally
		// failed. After SENT the record keeps its sent status; the error
		// is only reported.
		if !sent {
			if markErr := w.emails.MarkFailed(ctx, e.ID, err.Error()); markErr != nil {
				w.logger.ErrorContext(ctx, "failed to mark scheduled email failed",
					"scheduled_email_id", e.ID,
					"error", markErr,
				)
			} else {
				report.Processed++
			}
		} else {
			report.Processed++
		}
	}

	w.logger.InfoContext(ctx, "dispatch pass complete",
		"due", len(due),
		"processed", report.Processed,
		"errors", len(report.Errors),
	)

	return report, nil
}

// processItem runs the full dispatch sequence for one scheduled email. The
// returned bool reports whether the record reached SENT; the caller uses it
// to decide whether a trailing error may still flip the record to FAILED.
func (w *DispatchWorker) processItem(ctx context.Context, e *types.ScheduledEmail, now time.Time) (bool, error) {
	recipients, err := w.directory.ResolveRecipients(ctx, e.RecipientIDs)
	if err != nil {
		return false, fmt.Errorf("resolving recipients: %w", err)
	}
	if len(recipients) == 0 {
		return false, errNoRecipients
	}

	data := mailer.TemplateData{
		Subject: e.Subject,
		Message: e.Message,
	}
	result, err := w.gateway.SendBulk(ctx, mailer.KindAnnouncement, data, recipients, e.ID)
	if err != nil {
		return false, fmt.Errorf("sending: %w", err)
	}

	if e.CreateNotification {
		notification := &types.Notification{
			ID:           "notif_" + uuid.NewString(),
			Title:        e.Subject,
			Message:      e.Message,
			IsGlobal:     true,
			AssignmentID: e.AssignmentID,
			CreatedBy:    e.CreatedBy,
			CreatedAt:    now,
		}
		if err := w.notifications.Create(ctx, notification); err != nil {
			return false, fmt.Errorf("creating notification: %w", err)
		}
	}

	// Partial gateway failure still counts as sent; the summary is
	// informational, not a retry trigger.
	if err := w.emails.MarkSent(ctx, e.ID, now, result.Summary()); err != nil {
		return false, fmt.Errorf("marking sent: %w", err)
	}

	if err := w.audit.Log(ctx, types.AuditScheduledEmailSent, SystemActorID, map[string]any{
		"scheduled_email_id": e.ID,
		"recipients":         result.Recipients,
		"sent":               result.Sent,
		"failed":             result.Failed,
	}); err != nil {
		return true, fmt.Errorf("recording audit: %w", err)
	}

	if e.AssignmentID != nil {
		if err := w.publishLinked(ctx, *e.AssignmentID, e.ID, now); err != nil {
			return true, fmt.Errorf("publishing linked assignment: %w", err)
		}
	}

	return true, nil
}

// publishLinked publishes the assignment the email was gating, using the
// same conditional write as the publish worker. A lost race means someone
// else published it; that is success, not an error.
func (w *DispatchWorker) publishLinked(ctx context.Context, assignmentID string, emailID string, now time.Time) error {
	won, err := w.assignments.Publish(ctx, assignmentID, SystemActorID)
	if err != nil {
		return err
	}
	if !won {
		w.logger.DebugContext(ctx, "linked assignment already published, skipping",
			"assignment_id", assignmentID,
			"scheduled_email_id", emailID,
		)
		return nil
	}

	if err := w.audit.Log(ctx, types.AuditScheduledPublish, SystemActorID, map[string]any{
		"assignment_id":      assignmentID,
		"published_at":       now,
		"triggered_by":       "scheduled_email",
		"scheduled_email_id": emailID,
	}); err != nil {
		return fmt.Errorf("recording audit: %w", err)
	}

	return nil
}
