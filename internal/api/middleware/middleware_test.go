package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/numduel/internal/dependencies/mocks"
	"github.com/mcoot/numduel/internal/services/auth"
	"github.com/mcoot/numduel/internal/storage/memory"
	"github.com/mcoot/numduel/internal/testutil"
)

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	clk := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	return auth.New(memory.New(), clk, mocks.NewMockRandom(), testutil.NopLogger(), auth.DefaultConfig())
}

func TestTokenFromRequestPrecedence(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=query", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie"})
	assert.Equal(t, "query", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header")
	assert.Equal(t, "header", TokenFromRequest(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: "cookie"})
	assert.Equal(t, "cookie", TokenFromRequest(r))

	assert.Empty(t, TokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestAuthAttachesSession(t *testing.T) {
	svc := newAuthService(t)
	session, err := svc.CreateGuestPlayer(context.Background(), "Alice")
	require.NoError(t, err)

	var seen string
	h := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = string(MustGetPlayer(r.Context()).ID)
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+session.Token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, string(session.PlayerID), seen)
}

func TestAuthRejectsMissingAndUnknownTokens(t *testing.T) {
	svc := newAuthService(t)
	called := false
	h := Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	r := httptest.NewRequest(http.MethodGet, "/?token=sess_nope", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, called)
}

func TestRecoveryWritesInternalError(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	h := Recovery(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("secret detail")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret detail")

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)

	records := logs.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "panic recovered", records[0]["msg"])
	assert.Equal(t, "/boom", records[0]["path"])
}

func TestLoggingLevelFollowsStatus(t *testing.T) {
	logger, logs := testutil.CaptureLogger()
	status := http.StatusOK
	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte("hi"))
	}))

	for _, s := range []int{http.StatusOK, http.StatusNotFound, http.StatusServiceUnavailable} {
		status = s
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	}

	records := logs.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "INFO", records[0]["level"])
	assert.Equal(t, "WARN", records[1]["level"])
	assert.Equal(t, "ERROR", records[2]["level"])
	assert.EqualValues(t, 2, records[0]["size"])
	assert.EqualValues(t, http.StatusNotFound, records[1]["status"])
}
