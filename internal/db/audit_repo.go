package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"courseboard/internal/types"
)

// AuditRepository provides append and read access to the audit_log table.
// The table is append-only; nothing in this service updates or deletes rows.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new AuditRepository backed by the given
// database connection (pool or transaction).
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// Log appends an audit event. The event ID is generated here (audit_<uuid>)
// so callers only supply action, actor, and details.
//
// Audit writes are best-effort from the workers' point of view: callers log
// a failure and continue rather than failing the operation that succeeded.
func (r *AuditRepository) Log(ctx context.Context, action types.AuditAction, actorID string, details any) error {
	var raw []byte
	if details != nil {
		var err error
		raw, err = json.Marshal(details)
		if err != nil {
			return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode audit details", err)
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO audit_log (id, action, details, actor_id, created_at)
		 VALUES ($1, $2, $3, $4, NOW())`,
		"audit_"+uuid.NewString(),
		action,
		raw,
		actorID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to write audit event", err)
	}
	return nil
}

// List returns audit events created before the given cursor, newest first,
// capped at limit. Pass a zero cursor for the first page.
func (r *AuditRepository) List(ctx context.Context, before time.Time, limit int) ([]*types.AuditEvent, error) {
	if before.IsZero() {
		before = time.Now()
	}
	rows, err := r.db.Query(ctx,
		`SELECT al.id, al.action, al.details, al.actor_id, al.created_at
		 FROM audit_log al
		 WHERE al.created_at < $1
		 ORDER BY al.created_at DESC
		 LIMIT $2`,
		before,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list audit events", err)
	}
	defer rows.Close()

	var out []*types.AuditEvent
	for rows.Next() {
		var ev types.AuditEvent
		if err := rows.Scan(&ev.ID, &ev.Action, &ev.Details, &ev.ActorID, &ev.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan audit row", err)
		}
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate audit rows", err)
	}
	return out, nil
}
