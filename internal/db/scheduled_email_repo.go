package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"courseboard/internal/types"
)

// ScheduledEmailRepository provides data access for the scheduled_emails
// table. Status transitions out of 'pending' are guarded in SQL so the
// PENDING state can only be left once, regardless of concurrent workers.
type ScheduledEmailRepository struct {
	db DBTX
}

// NewScheduledEmailRepository creates a new ScheduledEmailRepository backed
// by the given database connection (pool or transaction).
func NewScheduledEmailRepository(db DBTX) *ScheduledEmailRepository {
	return &ScheduledEmailRepository{db: db}
}

// scheduledEmailColumns defines the standard set of columns selected for
// scheduled email queries.
const scheduledEmailColumns = `se.id, se.status, se.scheduled_at, se.recipient_ids,
	se.subject, se.message, se.create_notification, se.assignment_id,
	se.error, se.sent_at, se.cancelled_at, se.created_by, se.created_at`

// scanScheduledEmail scans a single scheduled email row. The columns must
// match the order defined in scheduledEmailColumns.
func scanScheduledEmail(row pgx.Row) (*types.ScheduledEmail, error) {
	var e types.ScheduledEmail
	err := row.Scan(
		&e.ID,
		&e.Status,
		&e.ScheduledAt,
		&e.RecipientIDs,
		&e.Subject,
		&e.Message,
		&e.CreateNotification,
		&e.AssignmentID,
		&e.Error,
		&e.SentAt,
		&e.CancelledAt,
		&e.CreatedBy,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetByID retrieves a scheduled email by its ID.
// Returns ErrCodeNotFoundScheduledEmail if no record exists.
func (r *ScheduledEmailRepository) GetByID(ctx context.Context, id string) (*types.ScheduledEmail, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+scheduledEmailColumns+`
		 FROM scheduled_emails se
		 WHERE se.id = $1`,
		id,
	)

	e, err := scanScheduledEmail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundScheduledEmail, "scheduled email not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve scheduled email", err)
	}
	return e, nil
}

// Create inserts a new pending scheduled email. The caller is responsible
// for setting the prefixed ID (sched_<uuid>).
func (r *ScheduledEmailRepository) Create(ctx context.Context, e *types.ScheduledEmail) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO scheduled_emails (id, status, scheduled_at, recipient_ids,
		 subject, message, create_notification, assignment_id, created_by, created_at)
		 VALUES ($1, 'pending', $2, $3, $4, $5, $6, $7, $8, COALESCE($9, NOW()))`,
		e.ID,
		e.ScheduledAt,
		e.RecipientIDs,
		e.Subject,
		e.Message,
		e.CreateNotification,
		e.AssignmentID,
		e.CreatedBy,
		nilIfZeroTime(e.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.NewAppError(types.ErrCodeConflictEmailState, "scheduled email already exists", err)
		}
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create scheduled email", err)
	}
	return nil
}

// ListDue returns pending scheduled emails whose scheduled time has arrived,
// oldest first, capped at limit.
func (r *ScheduledEmailRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*types.ScheduledEmail, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+scheduledEmailColumns+`
		 FROM scheduled_emails se
		 WHERE se.status = 'pending' AND se.scheduled_at <= $1
		 ORDER BY se.scheduled_at ASC
		 LIMIT $2`,
		now,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list due scheduled emails", err)
	}
	defer rows.Close()

	var out []*types.ScheduledEmail
	for rows.Next() {
		e, err := scanScheduledEmail(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan scheduled email row", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate scheduled email rows", err)
	}
	return out, nil
}

// MarkSent transitions a scheduled email from pending to sent, recording the
// send time and an optional partial-failure summary. The WHERE status =
// 'pending' condition enforces the one-way state machine: a record already
// in a terminal state is left untouched and ErrCodeConflictEmailState is
// returned.
func (r *ScheduledEmailRepository) MarkSent(ctx context.Context, id string, sentAt time.Time, errSummary string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE scheduled_emails
		 SET status = 'sent', sent_at = $2, error = $3
		 WHERE id = $1 AND status = 'pending'`,
		id,
		sentAt,
		nilIfEmpty(errSummary),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark scheduled email sent", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictEmailState, "scheduled email is not pending", nil)
	}
	return nil
}

// MarkFailed transitions a scheduled email from pending to failed with the
// given reason. Like MarkSent, it refuses to overwrite a terminal state.
func (r *ScheduledEmailRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE scheduled_emails
		 SET status = 'failed', error = $2
		 WHERE id = $1 AND status = 'pending'`,
		id,
		reason,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark scheduled email failed", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictEmailState, "scheduled email is not pending", nil)
	}
	return nil
}

// Cancel transitions a pending scheduled email to cancelled, recording the
// cancellation time. Returns ErrCodeConflictEmailState if the email already
// left the pending state (a dispatch pass may have picked it up).
func (r *ScheduledEmailRepository) Cancel(ctx context.Context, id string, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE scheduled_emails
		 SET status = 'cancelled', cancelled_at = $2
		 WHERE id = $1 AND status = 'pending'`,
		id,
		now,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to cancel scheduled email", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictEmailState, "scheduled email is not pending", nil)
	}
	return nil
}
