package db

import (
	"context"

	"courseboard/internal/types"
)

// UserRepository provides the read-only slice of user data this service
// needs: resolving recipient ids to deliverable addresses and enumerating
// notification audiences.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository backed by the given
// database connection (pool or transaction).
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// ResolveRecipients maps a list of user ids to deliverable recipients.
// Soft-deleted users are silently excluded, as are ids that no longer
// exist, so the result may be shorter than the input. An empty result is
// not an error here; the caller decides what an undeliverable list means.
func (r *UserRepository) ResolveRecipients(ctx context.Context, ids []string) ([]types.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.name, u.email
		 FROM users u
		 WHERE u.id = ANY($1) AND u.deleted_at IS NULL`,
		ids,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to resolve recipients", err)
	}
	defer rows.Close()

	var out []types.Recipient
	for rows.Next() {
		var rec types.Recipient
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Email); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan recipient row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate recipient rows", err)
	}
	return out, nil
}

// ListActiveByRole returns all non-deleted users with the given role.
// Used to build the audience for publish announcements.
func (r *UserRepository) ListActiveByRole(ctx context.Context, role types.UserRole) ([]types.Recipient, error) {
	rows, err := r.db.Query(ctx,
		`SELECT u.id, u.name, u.email
		 FROM users u
		 WHERE u.role = $1 AND u.deleted_at IS NULL
		 ORDER BY u.created_at ASC`,
		role,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list users by role", err)
	}
	defer rows.Close()

	var out []types.Recipient
	for rows.Next() {
		var rec types.Recipient
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Email); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan user row", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate user rows", err)
	}
	return out, nil
}
