package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- CronAuth ---

func TestCronAuth_MissingSecretIs500(t *testing.T) {
	srv := newTestServer(t, "", &fakePublishRunner{}, &fakeDispatchRunner{})

	rec := doCronRequest(srv, "/internal/cron/publish-due", "Bearer anything")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "config_cron_secret_missing", resp.Error.Code)
}

func TestCronAuth_MissingHeaderIs401(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})

	rec := doCronRequest(srv, "/internal/cron/publish-due", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "auth_token_missing", resp.Error.Code)
}

func TestCronAuth_WrongSecretIs401(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})

	rec := doCronRequest(srv, "/internal/cron/publish-due", "Bearer wrong")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "auth_token_invalid", resp.Error.Code)
}

func TestCronAuth_MalformedSchemeIs401(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})

	rec := doCronRequest(srv, "/internal/cron/publish-due", "Basic dXNlcjpwYXNz")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCronAuth_CaseInsensitiveBearerScheme(t *testing.T) {
	srv := newTestServer(t, "topsecret",
		&fakePublishRunner{},
		&fakeDispatchRunner{},
	)

	rec := doCronRequest(srv, "/internal/cron/publish-due", "bearer topsecret")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCronAuth_HealthNotGuarded(t *testing.T) {
	srv := newTestServer(t, "", &fakePublishRunner{}, &fakeDispatchRunner{})

	// Even with no secret configured, /health stays reachable.
	rec := doCronRequest(srv, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

// --- extractBearerToken ---

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc123", extractBearerToken("Bearer abc123"))
	assert.Equal(t, "abc123", extractBearerToken("bearer abc123"))
	assert.Equal(t, "abc123", extractBearerToken("Bearer   abc123  "))
	assert.Equal(t, "", extractBearerToken("Basic abc123"))
	assert.Equal(t, "", extractBearerToken(""))
	assert.Equal(t, "", extractBearerToken("Bearer"))
}

// --- Recoverer ---

func TestRecoverer_PanicYields500JSON(t *testing.T) {
	srv := newTestServer(t, "topsecret", &fakePublishRunner{}, &fakeDispatchRunner{})

	handler := srv.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal_unexpected_error", resp.Error.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
