package external

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courseboard/internal/types"
)

// fakeSESAPI captures SendEmail inputs and returns canned results.
type fakeSESAPI struct {
	input  *sesv2.SendEmailInput
	output *sesv2.SendEmailOutput
	err    error
}

func (f *fakeSESAPI) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return f.output, nil
}

func TestSESClient_Send_Success(t *testing.T) {
	api := &fakeSESAPI{
		output: &sesv2.SendEmailOutput{MessageId: aws.String("ses-msg-42")},
	}
	client := NewSESClientWithAPI(api, SESClientConfig{ConfigSetName: "courseboard-tracking"})

	msgID, err := client.Send(context.Background(), testSendInput())
	require.NoError(t, err)
	assert.Equal(t, "ses-msg-42", msgID)

	require.NotNil(t, api.input)
	assert.Equal(t, "Courseboard <noreply@courseboard.app>", *api.input.FromEmailAddress)
	assert.Equal(t, []string{"student0@example.edu"}, api.input.Destination.ToAddresses)
	assert.Equal(t, "Midterm schedule", *api.input.Content.Simple.Subject.Data)
	assert.Equal(t, "The midterm moves to Friday.", *api.input.Content.Simple.Body.Text.Data)
	assert.Equal(t, "<p>The midterm moves to Friday.</p>", *api.input.Content.Simple.Body.Html.Data)
	assert.Equal(t, "courseboard-tracking", *api.input.ConfigurationSetName)

	require.Len(t, api.input.EmailTags, 1)
	assert.Equal(t, "ReferenceID", *api.input.EmailTags[0].Name)
	assert.Equal(t, "sched_1", *api.input.EmailTags[0].Value)
}

func TestSESClient_Send_BareFromAddress(t *testing.T) {
	api := &fakeSESAPI{output: &sesv2.SendEmailOutput{MessageId: aws.String("ses-msg-1")}}
	client := NewSESClientWithAPI(api, SESClientConfig{})

	input := testSendInput()
	input.From.Name = ""

	_, err := client.Send(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "noreply@courseboard.app", *api.input.FromEmailAddress)
	assert.Nil(t, api.input.ConfigurationSetName)
}

func TestSESClient_Send_MessageRejected(t *testing.T) {
	api := &fakeSESAPI{err: &sestypes.MessageRejected{Message: aws.String("Email address is not verified")}}
	client := NewSESClientWithAPI(api, SESClientConfig{})

	_, err := client.Send(context.Background(), testSendInput())
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeEmailBlocked, appErr.Code)
}

func TestSESClient_Send_RateLimited(t *testing.T) {
	api := &fakeSESAPI{err: &sestypes.TooManyRequestsException{Message: aws.String("Maximum sending rate exceeded")}}
	client := NewSESClientWithAPI(api, SESClientConfig{})

	_, err := client.Send(context.Background(), testSendInput())
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeUpstreamRateLimited, appErr.Code)
}

func TestSESClient_Send_SendingPaused(t *testing.T) {
	api := &fakeSESAPI{err: &sestypes.SendingPausedException{Message: aws.String("Account sending is paused")}}
	client := NewSESClientWithAPI(api, SESClientConfig{})

	_, err := client.Send(context.Background(), testSendInput())
	require.Error(t, err)

	appErr, ok := err.(*types.AppError)
	require.True(t, ok)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErr.Code)
}
