package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"courseboard/internal/types"
)

// AssignmentRepository provides data access for the assignments table.
type AssignmentRepository struct {
	db DBTX
}

// NewAssignmentRepository creates a new AssignmentRepository backed by the
// given database connection (pool or transaction).
func NewAssignmentRepository(db DBTX) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// assignmentColumns defines the standard set of columns selected for
// assignment queries. Used consistently across all query methods to avoid
// column drift.
const assignmentColumns = `a.id, a.title, a.published, a.scheduled_publish_at,
	a.notify_on_publish, a.published_by, a.created_by, a.created_at`

// scanAssignment scans a single assignment row into a types.Assignment.
// The columns must match the order defined in assignmentColumns.
func scanAssignment(row pgx.Row) (*types.Assignment, error) {
	var a types.Assignment
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Published,
		&a.ScheduledPublishAt,
		&a.NotifyOnPublish,
		&a.PublishedBy,
		&a.CreatedBy,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID retrieves an assignment by its ID.
// Returns ErrCodeNotFoundAssignment if no assignment exists.
func (r *AssignmentRepository) GetByID(ctx context.Context, id string) (*types.Assignment, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+assignmentColumns+`
		 FROM assignments a
		 WHERE a.id = $1`,
		id,
	)

	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundAssignment, "assignment not found", nil)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve assignment", err)
	}
	return a, nil
}

// ListDuePublishable returns unpublished assignments whose scheduled publish
// time has arrived and which have no pending scheduled email linked to them.
// Assignments awaiting a linked email are deferred so that the email dispatch
// path publishes them immediately after the send completes.
//
// Results are ordered oldest-due first so a backlog drains in schedule order.
func (r *AssignmentRepository) ListDuePublishable(ctx context.Context, now time.Time, limit int) ([]*types.Assignment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+assignmentColumns+`
		 FROM assignments a
		 WHERE a.published = false
		   AND a.scheduled_publish_at IS NOT NULL
		   AND a.scheduled_publish_at <= $1
		   AND NOT EXISTS (
		     SELECT 1 FROM scheduled_emails se
		     WHERE se.assignment_id = a.id AND se.status = 'pending'
		   )
		 ORDER BY a.scheduled_publish_at ASC
		 LIMIT $2`,
		now,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list due assignments", err)
	}
	defer rows.Close()

	var out []*types.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan assignment row", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate assignment rows", err)
	}
	return out, nil
}

// Publish atomically marks an assignment as published and clears its
// schedule. The WHERE published = false condition makes the write a
// compare-and-set: of any number of concurrent callers, exactly one
// observes RowsAffected() == 1 and wins; the rest get false with no error.
//
// Returns (true, nil) if this call performed the publish, (false, nil) if
// the assignment was already published (or does not exist).
func (r *AssignmentRepository) Publish(ctx context.Context, id string, actorID string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE assignments
		 SET published = true, published_by = $2, scheduled_publish_at = NULL
		 WHERE id = $1 AND published = false`,
		id,
		actorID,
	)
	if err != nil {
		return false, types.NewAppError(types.ErrCodeInternalDB, "failed to publish assignment", err)
	}
	return tag.RowsAffected() > 0, nil
}
