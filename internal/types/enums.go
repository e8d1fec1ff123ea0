package types

// EmailStatus is the lifecycle state of a scheduled email.
// PENDING is the only non-terminal state: a record leaves it exactly once,
// into one of SENT, FAILED, or CANCELLED, and is never reprocessed after.
type EmailStatus string

const (
	EmailStatusPending   EmailStatus = "pending"
	EmailStatusSent      EmailStatus = "sent"
	EmailStatusFailed    EmailStatus = "failed"
	EmailStatusCancelled EmailStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s EmailStatus) IsTerminal() bool {
	switch s {
	case EmailStatusSent, EmailStatusFailed, EmailStatusCancelled:
		return true
	}
	return false
}

// UserRole identifies the audience a user belongs to.
type UserRole string

const (
	RoleStaff   UserRole = "staff"
	RoleStudent UserRole = "student"
)

// AuditAction categorizes entries in the append-only audit log.
type AuditAction string

const (
	// AuditScheduledPublish records an assignment flipping to published,
	// whether by the publish worker's selection pass or by the dispatch
	// worker's linked-assignment trigger.
	AuditScheduledPublish AuditAction = "scheduled_publish"

	// AuditScheduledEmailSent records a scheduled email dispatch cycle,
	// including recipient/sent/failed counts.
	AuditScheduledEmailSent AuditAction = "scheduled_email_sent"
)
