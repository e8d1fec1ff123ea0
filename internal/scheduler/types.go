// Package scheduler implements the cron-triggered workers that move
// scheduled content through its lifecycle: publishing due assignments and
// dispatching due emails. Both workers are stateless between invocations
// and rely on conditional database writes, not locks, for correctness
// against overlapping runs.
package scheduler

import (
	"context"
	"time"

	"courseboard/internal/mailer"
	"courseboard/internal/types"
)

// DefaultBatchLimit is the maximum number of items a single worker
// invocation processes. Backlog beyond the limit is picked up by the next
// scheduled run.
const DefaultBatchLimit = 100

// SystemActorID is the actor recorded on writes performed by the workers
// themselves rather than a human user.
const SystemActorID = "system"

// PublishReport summarizes one publish worker invocation. Errors holds one
// description per failed item; failed items stay due and are retried next
// run.
type PublishReport struct {
	Published int      `json:"published"`
	Errors    []string `json:"errors"`
}

// DispatchReport summarizes one email dispatch invocation. Processed counts
// emails that reached a terminal state this run, whether sent or failed.
type DispatchReport struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

// AssignmentStore is the assignment data access the workers need.
// Implemented by db.AssignmentRepository.
type AssignmentStore interface {
	GetByID(ctx context.Context, id string) (*types.Assignment, error)
	ListDuePublishable(ctx context.Context, now time.Time, limit int) ([]*types.Assignment, error)
	// Publish conditionally marks the assignment published. Returns false
	// with no error when another writer got there first.
	Publish(ctx context.Context, id string, actorID string) (bool, error)
}

// EmailStore is the scheduled email data access the dispatch worker needs.
// Implemented by db.ScheduledEmailRepository.
type EmailStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]*types.ScheduledEmail, error)
	MarkSent(ctx context.Context, id string, sentAt time.Time, errSummary string) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Directory resolves user ids to deliverable recipients.
// Implemented by db.UserRepository.
type Directory interface {
	ResolveRecipients(ctx context.Context, ids []string) ([]types.Recipient, error)
	ListActiveByRole(ctx context.Context, role types.UserRole) ([]types.Recipient, error)
}

// NotificationStore appends in-app announcement records.
// Implemented by db.NotificationRepository.
type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error
}

// AuditLog appends audit events. Implemented by db.AuditRepository.
type AuditLog interface {
	Log(ctx context.Context, action types.AuditAction, actorID string, details any) error
}

// EmailGateway fans a rendered message out to a recipient list.
// Implemented by mailer.Gateway.
type EmailGateway interface {
	SendBulk(ctx context.Context, kind mailer.TemplateKind, data mailer.TemplateData, recipients []types.Recipient, referenceID string) (mailer.BulkSendResult, error)
}
