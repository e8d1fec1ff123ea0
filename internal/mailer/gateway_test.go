package mailer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courseboard/internal/types"
)

// fakeProvider records sends and fails addresses listed in failFor.
type fakeProvider struct {
	sent    []types.SendInput
	failFor map[string]error
}

func (p *fakeProvider) Send(ctx context.Context, input types.SendInput) (string, error) {
	if err := p.failFor[input.To]; err != nil {
		return "", err
	}
	p.sent = append(p.sent, input)
	return "msg_" + input.To, nil
}

func testRecipients(n int) []types.Recipient {
	out := make([]types.Recipient, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.Recipient{
			ID:    fmt.Sprintf("user_%d", i),
			Name:  fmt.Sprintf("Student %d", i),
			Email: fmt.Sprintf("student%d@example.edu", i),
		})
	}
	return out
}

func newTestGateway(t *testing.T, provider *fakeProvider) *Gateway {
	t.Helper()
	renderer, err := NewRenderer()
	require.NoError(t, err)
	return NewGateway(provider, renderer, types.EmailAddress{
		Address: "noreply@courseboard.app",
		Name:    "Courseboard",
	}, nil)
}

func TestGateway_SendBulk_AllSucceed(t *testing.T) {
	provider := &fakeProvider{}
	gw := newTestGateway(t, provider)

	result, err := gw.SendBulk(context.Background(), KindAnnouncement, TemplateData{
		Subject: "Midterm schedule",
		Message: "The midterm moves to Friday.",
	}, testRecipients(3), "sched_1")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Recipients)
	assert.Equal(t, 3, result.Sent)
	assert.Equal(t, 0, result.Failed)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Summary())

	require.Len(t, provider.sent, 3)
	// Each recipient gets their own personalized rendering.
	assert.Contains(t, provider.sent[0].BodyText, "Hi Student 0,")
	assert.Contains(t, provider.sent[2].BodyText, "Hi Student 2,")
	assert.Equal(t, "sched_1", provider.sent[0].ReferenceID)
	assert.Equal(t, "noreply@courseboard.app", provider.sent[0].From.Address)
}

func TestGateway_SendBulk_PartialFailureIsolated(t *testing.T) {
	recipients := testRecipients(10)
	provider := &fakeProvider{failFor: map[string]error{
		recipients[2].Email: errors.New("mailbox full"),
		recipients[5].Email: errors.New("suppressed"),
		recipients[7].Email: errors.New("suppressed"),
	}}
	gw := newTestGateway(t, provider)

	result, err := gw.SendBulk(context.Background(), KindAnnouncement, TemplateData{
		Subject: "Midterm schedule",
		Message: "The midterm moves to Friday.",
	}, recipients, "sched_1")
	require.NoError(t, err)

	assert.Equal(t, 10, result.Recipients)
	assert.Equal(t, 7, result.Sent)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, result.Recipients, result.Sent+result.Failed)
	assert.Equal(t, "3 of 10 emails failed", result.Summary())
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], recipients[2].Email)

	// Every deliverable recipient was still attempted.
	assert.Len(t, provider.sent, 7)
}

func TestGateway_SendBulk_ErrorListBounded(t *testing.T) {
	recipients := testRecipients(25)
	failFor := make(map[string]error, len(recipients))
	for _, rec := range recipients {
		failFor[rec.Email] = errors.New("upstream down")
	}
	provider := &fakeProvider{failFor: failFor}
	gw := newTestGateway(t, provider)

	result, err := gw.SendBulk(context.Background(), KindAnnouncement, TemplateData{
		Subject: "Outage test",
		Message: "m",
	}, recipients, "sched_1")
	require.NoError(t, err)

	// Counts stay exact while the detail list is capped.
	assert.Equal(t, 25, result.Failed)
	assert.Len(t, result.Errors, maxReportedErrors)
	assert.Equal(t, "25 of 25 emails failed", result.Summary())
}

func TestGateway_SendBulk_NoRecipients(t *testing.T) {
	provider := &fakeProvider{}
	gw := newTestGateway(t, provider)

	result, err := gw.SendBulk(context.Background(), KindAnnouncement, TemplateData{
		Subject: "Empty",
		Message: "m",
	}, nil, "sched_1")
	require.NoError(t, err)

	assert.Equal(t, 0, result.Recipients)
	assert.Equal(t, 0, result.Sent)
	assert.Empty(t, provider.sent)
}
