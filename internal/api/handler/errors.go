package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcoot/numduel/internal/api/apierr"
)

// maxBodyBytes caps request bodies; every request type is a few short fields
const maxBodyBytes = 4 << 10

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return apierr.NewUnauthorizedError()
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst at its
// zero value so the services report the missing field. On failure it writes
// a 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		WriteError(w, NewInvalidRequestError("request body too large"))
		return false
	}
	WriteError(w, NewInvalidRequestError("invalid request body"))
	return false
}
