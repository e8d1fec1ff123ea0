package db

import (
	"context"

	"courseboard/internal/types"
)

// NotificationRepository provides data access for the notifications table.
// Notification rows are append-only; the feed consumers read them, nothing
// here updates them.
type NotificationRepository struct {
	db DBTX
}

// NewNotificationRepository creates a new NotificationRepository backed by
// the given database connection (pool or transaction).
func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification record. The caller is responsible for
// setting the prefixed ID (notif_<uuid>).
func (r *NotificationRepository) Create(ctx context.Context, n *types.Notification) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO notifications (id, title, message, is_global, assignment_id, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		n.ID,
		n.Title,
		n.Message,
		n.IsGlobal,
		n.AssignmentID,
		n.CreatedBy,
		nilIfZeroTime(n.CreatedAt),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create notification", err)
	}
	return nil
}

// ListRecent returns the most recent notifications, newest first, capped at
// limit. Backs the in-app announcement feed.
func (r *NotificationRepository) ListRecent(ctx context.Context, limit int) ([]*types.Notification, error) {
	rows, err := r.db.Query(ctx,
		`SELECT n.id, n.title, n.message, n.is_global, n.assignment_id, n.created_by, n.created_at
		 FROM notifications n
		 ORDER BY n.created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list notifications", err)
	}
	defer rows.Close()

	var out []*types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.IsGlobal, &n.AssignmentID, &n.CreatedBy, &n.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan notification row", err)
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate notification rows", err)
	}
	return out, nil
}
