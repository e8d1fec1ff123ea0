package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"courseboard/internal/types"
)

// --- Fake pgx.Rows for scheduled email list queries ---

type scheduledEmailRows struct {
	data   []types.ScheduledEmail
	idx    int
	closed bool
	errVal error
}

func newScheduledEmailRows(data []types.ScheduledEmail) *scheduledEmailRows {
	return &scheduledEmailRows{data: data, idx: -1}
}

func (r *scheduledEmailRows) Next() bool {
	if r.closed {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}

func (r *scheduledEmailRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	*dest[0].(*string) = row.ID
	*dest[1].(*types.EmailStatus) = row.Status
	*dest[2].(*time.Time) = row.ScheduledAt
	*dest[3].(*[]string) = row.RecipientIDs
	*dest[4].(*string) = row.Subject
	*dest[5].(*string) = row.Message
	*dest[6].(*bool) = row.CreateNotification
	*dest[7].(**string) = row.AssignmentID
	*dest[8].(**string) = row.Error
	*dest[9].(**time.Time) = row.SentAt
	*dest[10].(**time.Time) = row.CancelledAt
	*dest[11].(*string) = row.CreatedBy
	*dest[12].(*time.Time) = row.CreatedAt
	return nil
}

func (r *scheduledEmailRows) Close()                                       { r.closed = true }
func (r *scheduledEmailRows) Err() error                                   { return r.errVal }
func (r *scheduledEmailRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *scheduledEmailRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *scheduledEmailRows) RawValues() [][]byte                          { return nil }
func (r *scheduledEmailRows) Values() ([]any, error)                       { return nil, nil }
func (r *scheduledEmailRows) Conn() *pgx.Conn                              { return nil }

// --- ListDue ---

func TestScheduledEmailRepository_ListDue(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	now := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	assignmentID := "asgn_1"
	rows := newScheduledEmailRows([]types.ScheduledEmail{
		{
			ID:           "sched_1",
			Status:       types.EmailStatusPending,
			ScheduledAt:  now.Add(-time.Minute),
			RecipientIDs: []string{"user_1", "user_2"},
			Subject:      "Reminder",
			Message:      "Problem set opens today.",
			AssignmentID: &assignmentID,
			CreatedBy:    "user_staff",
			CreatedAt:    now.Add(-time.Hour),
		},
	})

	dbtx.On("Query", mock.Anything, mock.AnythingOfType("string"), []any{now, 100}).
		Return(rows, nil)

	due, err := repo.ListDue(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "sched_1", due[0].ID)
	assert.Equal(t, types.EmailStatusPending, due[0].Status)
	assert.Equal(t, []string{"user_1", "user_2"}, due[0].RecipientIDs)
	require.NotNil(t, due[0].AssignmentID)
	assert.Equal(t, "asgn_1", *due[0].AssignmentID)
}

// --- MarkSent / MarkFailed / Cancel: one-way state machine ---

func TestScheduledEmailRepository_MarkSent_Success(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	sentAt := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	dbtx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.MarkSent(context.Background(), "sched_1", sentAt, "")
	require.NoError(t, err)
	dbtx.AssertExpectations(t)
}

func TestScheduledEmailRepository_MarkSent_WithPartialFailureSummary(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	sentAt := time.Now().UTC()
	summary := "3 of 10 emails failed"
	dbtx.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"sched_1", sentAt, &summary}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.MarkSent(context.Background(), "sched_1", sentAt, summary)
	require.NoError(t, err)
	dbtx.AssertExpectations(t)
}

func TestScheduledEmailRepository_MarkSent_NotPending(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	// Record already left PENDING; the guarded update matches nothing.
	dbtx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.MarkSent(context.Background(), "sched_1", time.Now(), "")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictEmailState, appErr.Code)
}

func TestScheduledEmailRepository_MarkFailed_NotPending(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	dbtx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.MarkFailed(context.Background(), "sched_1", "No valid recipients found")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictEmailState, appErr.Code)
}

func TestScheduledEmailRepository_Cancel_Success(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	now := time.Now().UTC()
	dbtx.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"sched_1", now}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := repo.Cancel(context.Background(), "sched_1", now)
	require.NoError(t, err)
}

func TestScheduledEmailRepository_Cancel_AlreadyDispatched(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	dbtx.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	err := repo.Cancel(context.Background(), "sched_1", time.Now())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeConflictEmailState, appErr.Code)
}

// --- GetByID ---

func TestScheduledEmailRepository_GetByID_NotFound(t *testing.T) {
	dbtx := new(mockDBTX)
	repo := NewScheduledEmailRepository(dbtx)

	row := &mockRow{scanErr: pgx.ErrNoRows}
	dbtx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(row)

	_, err := repo.GetByID(context.Background(), "sched_missing")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundScheduledEmail, appErr.Code)
}
