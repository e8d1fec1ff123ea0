// Package types defines the domain model shared across the Courseboard
// scheduling service: assignments, scheduled emails, notifications, audit
// records, and the error and context plumbing used by every layer.
package types

import (
	"encoding/json"
	"time"
)

// Assignment is a content item staff can schedule for future visibility.
//
// Invariants enforced by the repositories and workers:
//   - once Published is true it is never unset by this service;
//   - ScheduledPublishAt is cleared in the same atomic write that sets
//     Published, so a published assignment is never selected as "due" again.
type Assignment struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Published          bool       `json:"published"`
	ScheduledPublishAt *time.Time `json:"scheduled_publish_at,omitempty"`
	NotifyOnPublish    bool       `json:"notify_on_publish"`
	PublishedBy        *string    `json:"published_by,omitempty"`
	CreatedBy          string     `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
}

// ScheduledEmail is a queued outbound email consumed exactly once by the
// dispatch worker. AssignmentID, when set, links the email to an assignment
// whose publication must not precede the send.
type ScheduledEmail struct {
	ID                 string      `json:"id"`
	Status             EmailStatus `json:"status"`
	ScheduledAt        time.Time   `json:"scheduled_at"`
	RecipientIDs       []string    `json:"recipient_ids"`
	Subject            string      `json:"subject"`
	Message            string      `json:"message"`
	CreateNotification bool        `json:"create_notification"`
	AssignmentID       *string     `json:"assignment_id,omitempty"`
	Error              *string     `json:"error,omitempty"`
	SentAt             *time.Time  `json:"sent_at,omitempty"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
	CreatedBy          string      `json:"created_by"`
	CreatedAt          time.Time   `json:"created_at"`
}

// Notification is an in-app broadcast record. Created by the workers,
// never mutated.
type Notification struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	IsGlobal     bool      `json:"is_global"`
	AssignmentID *string   `json:"assignment_id,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditEvent is one immutable row in the append-only audit log.
type AuditEvent struct {
	ID        string          `json:"id"`
	Action    AuditAction     `json:"action"`
	Details   json.RawMessage `json:"details,omitempty"`
	ActorID   string          `json:"actor_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// User is the slice of the platform's user record this service reads.
// Soft-deleted users (DeletedAt set) are never deliverable.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      UserRole   `json:"role"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Recipient is a user id resolved to a deliverable address.
type Recipient struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// EmailAddress pairs an address with an optional display name.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// SendInput carries one pre-rendered email to an EmailProvider.
// Content is fully rendered by the caller; providers do no templating.
type SendInput struct {
	To       string       `json:"to"`
	ToName   string       `json:"to_name,omitempty"`
	From     EmailAddress `json:"from"`
	Subject  string       `json:"subject"`
	BodyHTML string       `json:"body_html,omitempty"`
	BodyText string       `json:"body_text,omitempty"`
	// ReferenceID correlates the send with the originating record
	// (scheduled email or assignment id) in provider logs.
	ReferenceID string `json:"reference_id,omitempty"`
}
