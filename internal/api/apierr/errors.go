package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/numduel/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Kind    model.ErrorKind `json:"kind"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Error codes that do not come from the domain
const (
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnauthorized   = "UNAUTHENTICATED"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeShuttingDown   = "SHUTTING_DOWN"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// FromError converts an error to the body sent to clients.
// Internal errors never leak their message.
func FromError(err error) APIError {
	return toHTTPError(err).apiError
}

// Status returns the HTTP status for an error
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	var de *model.Error
	if !errors.As(err, &de) {
		return &httpError{http.StatusInternalServerError, APIError{model.KindInternal, CodeInternalError, "Internal server error"}}
	}

	apiError := APIError{Kind: de.Kind, Code: de.Code, Message: de.Message}
	switch de.Kind {
	case model.KindValidation:
		return &httpError{http.StatusBadRequest, apiError}
	case model.KindAuthorization:
		if errors.Is(err, model.ErrUnauthenticated) || errors.Is(err, model.ErrInvalidCredentials) {
			return &httpError{http.StatusUnauthorized, apiError}
		}
		return &httpError{http.StatusForbidden, apiError}
	case model.KindConflict:
		return &httpError{http.StatusConflict, apiError}
	case model.KindNotFound:
		return &httpError{http.StatusNotFound, apiError}
	case model.KindTransient:
		return &httpError{http.StatusServiceUnavailable, apiError}
	default:
		return &httpError{http.StatusInternalServerError, APIError{model.KindInternal, CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{model.KindValidation, CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{model.KindAuthorization, CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{model.KindInternal, CodeInternalError, "Internal server error"}}
}

// NewShuttingDownError rejects new work while the server drains
func NewShuttingDownError() error {
	return &httpError{http.StatusServiceUnavailable, APIError{model.KindTransient, CodeShuttingDown, "Server is shutting down"}}
}
