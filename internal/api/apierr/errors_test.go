package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/numduel/internal/model"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", model.ErrInvalidNumber, http.StatusBadRequest},
		{"unauthenticated", model.ErrUnauthenticated, http.StatusUnauthorized},
		{"bad credentials", model.ErrInvalidCredentials, http.StatusUnauthorized},
		{"forbidden", model.ErrNotYourTurn, http.StatusForbidden},
		{"conflict", model.ErrRoomFull, http.StatusConflict},
		{"not found", model.ErrSessionNotFound, http.StatusNotFound},
		{"transient", model.ErrPersistenceUnavailable, http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("join: %w", model.ErrRoomFull), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"explicit", NewInvalidRequestError("bad body"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestFromErrorHidesInternalDetail(t *testing.T) {
	apiErr := FromError(errors.New("redis: connection refused"))
	assert.Equal(t, model.KindInternal, apiErr.Kind)
	assert.Equal(t, CodeInternalError, apiErr.Code)
	assert.NotContains(t, apiErr.Message, "redis")
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, model.ErrNotYourTurn)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, model.KindAuthorization, body.Error.Kind)
	assert.Equal(t, "NOT_YOUR_TURN", body.Error.Code)
}
