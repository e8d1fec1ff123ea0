package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courseboard/internal/config"
	"courseboard/internal/scheduler"
)

// --- Fake workers ---

type fakePublishRunner struct {
	report scheduler.PublishReport
	err    error
}

func (f *fakePublishRunner) Run(ctx context.Context, now time.Time) (scheduler.PublishReport, error) {
	return f.report, f.err
}

type fakeDispatchRunner struct {
	report scheduler.DispatchReport
	err    error
}

func (f *fakeDispatchRunner) Run(ctx context.Context, now time.Time) (scheduler.DispatchReport, error) {
	return f.report, f.err
}

func newTestServer(t *testing.T, secret string, publish *fakePublishRunner, dispatch *fakeDispatchRunner) *Server {
	t.Helper()
	cfg := &config.Config{
		Environment: "local",
	}
	cfg.Scheduler.CronSecret = config.SecretString(secret)

	srv, err := NewServer(cfg, publish, dispatch, nil)
	require.NoError(t, err)
	srv.MountRoutes()
	return srv
}

func doCronRequest(srv *Server, path string, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// --- Publish endpoint ---

func TestHandlePublishDue_Success(t *testing.T) {
	srv := newTestServer(t, "topsecret",
		&fakePublishRunner{report: scheduler.PublishReport{Published: 2, Errors: []string{}}},
		&fakeDispatchRunner{},
	)

	rec := doCronRequest(srv, "/internal/cron/publish-due", "Bearer topsecret")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Published int      `json:"published"`
		Errors    []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Published)
	require.NotNil(t, body.Errors)
	assert.Empty(t, body.Errors)
}

func TestHandlePublishDue_ItemErrorsStill200(t *testing.T) {
	srv := newTestServer(t, "topsecret",
		&fakePublishRunner{report: scheduler.PublishReport{
			Published: 1,
			Errors:    []string{"Second: deadlock detected"},
		}},
		&fakeDispatchRunner{},
	)

	rec := doCronRequest(srv, "/internal/cron/publish-due", "Bearer topsecret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadlock detected")
}

func TestHandlePublishDue_SelectionFailure500(t *testing.T) {
	srv := newTestServer(t, "topsecret",
		&fakePublishRunner{err: errors.New("relation does not exist")},
		&fakeDispatchRunner{},
	)

	rec := doCronRequest(srv, "/internal/cron/publish-due", "Bearer topsecret")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal_database_error", resp.Error.Code)
	// Internal details are never echoed to the caller.
	assert.NotContains(t, rec.Body.String(), "relation does not exist")
}

// --- Dispatch endpoint ---

func TestHandleDispatchEmails_Success(t *testing.T) {
	srv := newTestServer(t, "topsecret",
		&fakePublishRunner{},
		&fakeDispatchRunner{report: scheduler.DispatchReport{Processed: 3, Errors: []string{}}},
	)

	rec := doCronRequest(srv, "/internal/cron/dispatch-emails", "Bearer topsecret")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Processed int      `json:"processed"`
		Errors    []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Processed)
	require.NotNil(t, body.Errors)
}

// --- Health endpoint ---

func TestHandleHealth_NoProbes(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})

	rec := doCronRequest(srv, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHandleHealth_ProbeFailure503(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})
	srv.HealthProbes = []HealthProbe{
		HealthProbeFunc{ProbeName: "database", CheckFunc: func(ctx context.Context) error {
			return errors.New("connection refused")
		}},
		HealthProbeFunc{ProbeName: "email", CheckFunc: func(ctx context.Context) error {
			return nil
		}},
	}

	rec := doCronRequest(srv, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status     string `json:"status"`
		Components map[string]struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "unhealthy", body.Components["database"].Status)
	assert.Equal(t, "healthy", body.Components["email"].Status)
}

// --- Request ID ---

func TestRequestID_EchoedInHeaderAndErrors(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})

	req := httptest.NewRequest(http.MethodGet, "/internal/cron/publish-due", nil)
	req.Header.Set("X-Request-ID", "req_cron_42")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req_cron_42", rec.Header().Get("X-Request-ID"))

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req_cron_42", resp.Error.RequestID)
}
