package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"courseboard/internal/mailer"
	"courseboard/internal/types"
)

// PublishWorker publishes assignments whose scheduled time has arrived.
// Assignments with a pending linked email are excluded by the selection
// query; the dispatch worker publishes those itself after sending, which is
// what keeps the email ahead of the publish.
//
// The worker holds no state between invocations. Overlapping runs are safe:
// the conditional publish write decides the winner per assignment, and the
// loser skips its side effects.
type PublishWorker struct {
	assignments   AssignmentStore
	notifications NotificationStore
	audit         AuditLog
	directory     Directory
	gateway       EmailGateway
	batchLimit    int
	logger        *slog.Logger
}

// NewPublishWorker creates a PublishWorker. Pass batchLimit <= 0 to use
// DefaultBatchLimit, and a nil logger to use slog.Default().
func NewPublishWorker(
	assignments AssignmentStore,
	notifications NotificationStore,
	audit AuditLog,
	directory Directory,
	gateway EmailGateway,
	batchLimit int,
	logger *slog.Logger,
) *PublishWorker {
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PublishWorker{
		assignments:   assignments,
		notifications: notifications,
		audit:         audit,
		directory:     directory,
		gateway:       gateway,
		batchLimit:    batchLimit,
		logger:        logger,
	}
}

// Run executes one publish pass at the given time. The returned report is
// always usable; err is non-nil only when the selection query itself fails,
// in which case nothing was processed.
//
// Per-item failures after the publish write are recorded in the report and
// never undo the publish: the assignment stays published even if its
// notification fan-out failed.
func (w *PublishWorker) Run(ctx context.Context, now time.Time) (PublishReport, error) {
	report := PublishReport{Errors: []string{}}

	due, err := w.assignments.ListDuePublishable(ctx, now, w.batchLimit)
	if err != nil {
		return report, fmt.Errorf("listing due assignments: %w", err)
	}

	for _, a := range due {
		published, err := w.processAssignment(ctx, a, now)
		if err != nil {
			w.logger.ErrorContext(ctx, "failed to process due assignment",
				"assignment_id", a.ID,
				"error", err,
			)
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", a.Title, err))
		}
		if published {
			report.Published++
		}
	}

	w.logger.InfoContext(ctx, "publish pass complete",
		"due", len(due),
		"published", report.Published,
		"errors", len(report.Errors),
	)

	return report, nil
}

// processAssignment publishes one due assignment and runs its side effects.
// The returned bool reports whether this call performed the publish; side
// effect errors arrive with published == true and must not be treated as a
// failure of the publish itself.
func (w *PublishWorker) processAssignment(ctx context.Context, a *types.Assignment, now time.Time) (bool, error) {
	won, err := w.assignments.Publish(ctx, a.ID, SystemActorID)
	if err != nil {
		return false, fmt.Errorf("publishing: %w", err)
	}
	if !won {
		// Another invocation, or the dispatch worker, got there first.
		w.logger.DebugContext(ctx, "assignment already published, skipping",
			"assignment_id", a.ID,
		)
		return false, nil
	}

	if err := w.audit.Log(ctx, types.AuditScheduledPublish, SystemActorID, map[string]any{
		"assignment_id": a.ID,
		"scheduled_at":  a.ScheduledPublishAt,
		"published_at":  now,
	}); err != nil {
		return true, fmt.Errorf("recording audit: %w", err)
	}

	if !a.NotifyOnPublish {
		return true, nil
	}

	if err := w.notifyPublished(ctx, a, now); err != nil {
		return true, fmt.Errorf("notifying publish: %w", err)
	}

	return true, nil
}

// notifyPublished emails the student audience about the newly visible
// assignment and creates the global in-app announcement.
func (w *PublishWorker) notifyPublished(ctx context.Context, a *types.Assignment, now time.Time) error {
	audience, err := w.directory.ListActiveByRole(ctx, types.RoleStudent)
	if err != nil {
		return fmt.Errorf("resolving audience: %w", err)
	}

	if len(audience) > 0 {
		data := mailer.TemplateData{
			Subject:         fmt.Sprintf("Now available: %s", a.Title),
			AssignmentTitle: a.Title,
			Message:         fmt.Sprintf("%q was published on %s.", a.Title, now.Format("Jan 2, 2006 at 15:04 MST")),
		}
		result, err := w.gateway.SendBulk(ctx, mailer.KindAssignmentPublished, data, audience, a.ID)
		if err != nil {
			return fmt.Errorf("sending publish emails: %w", err)
		}
		if result.Failed > 0 {
			w.logger.WarnContext(ctx, "some publish emails failed",
				"assignment_id", a.ID,
				"sent", result.Sent,
				"failed", result.Failed,
			)
		}
	}

	notification := &types.Notification{
		ID:           "notif_" + uuid.NewString(),
		Title:        fmt.Sprintf("Now available: %s", a.Title),
		Message:      fmt.Sprintf("%q is now available.", a.Title),
		IsGlobal:     true,
		AssignmentID: &a.ID,
		CreatedBy:    a.CreatedBy,
		CreatedAt:    now,
	}
	if err := w.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}

	return nil
}
