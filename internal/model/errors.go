package model

import "errors"

// ErrorKind classifies an error for the caller
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindAuthorization ErrorKind = "authorization"
	KindConflict      ErrorKind = "conflict"
	KindNotFound      ErrorKind = "not_found"
	KindTransient     ErrorKind = "transient"
	KindInternal      ErrorKind = "internal"
)

// Error is a domain error with a stable reason code
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Common errors used across the application
var (
	// Validation errors
	ErrInvalidNumber    = newError(KindValidation, "INVALID_NUMBER", "number must be exactly 5 digits")
	ErrInvalidGameMode  = newError(KindValidation, "INVALID_GAME_MODE", "game mode must be standard or hard")
	ErrInvalidQueueType = newError(KindValidation, "INVALID_QUEUE_TYPE", "queue type must be casual or ranked")
	ErrInvalidRoomCode  = newError(KindValidation, "INVALID_ROOM_CODE", "room code must be 6 alphanumeric characters")
	ErrInvalidName      = newError(KindValidation, "INVALID_NAME", "display name must be 1-32 characters")
	ErrInvalidPassword  = newError(KindValidation, "INVALID_PASSWORD", "password must be at least 6 characters")
	ErrInvalidRequest   = newError(KindValidation, "INVALID_REQUEST", "malformed request")

	// Authorization errors
	ErrUnauthenticated    = newError(KindAuthorization, "UNAUTHENTICATED", "invalid or expired session")
	ErrInvalidCredentials = newError(KindAuthorization, "INVALID_CREDENTIALS", "invalid credentials")
	ErrNotMember          = newError(KindAuthorization, "NOT_MEMBER", "player is not a member of this room")
	ErrNotYourTurn        = newError(KindAuthorization, "NOT_YOUR_TURN", "not this player's turn")

	// Conflict errors
	ErrUsernameExists        = newError(KindConflict, "USERNAME_EXISTS", "username already exists")
	ErrRoomFull              = newError(KindConflict, "ROOM_FULL", "room is full")
	ErrRoomNotJoinable       = newError(KindConflict, "ROOM_NOT_JOINABLE", "room is no longer accepting players")
	ErrSecretAlreadySet      = newError(KindConflict, "SECRET_ALREADY_SUBMITTED", "secret number already submitted")
	ErrGameAlreadyStarted    = newError(KindConflict, "GAME_ALREADY_STARTED", "game has already started")
	ErrGameNotPlaying        = newError(KindConflict, "GAME_NOT_PLAYING", "game is not in progress")
	ErrGameInProgress        = newError(KindConflict, "GAME_IN_PROGRESS", "game is in progress")
	ErrGameOver              = newError(KindConflict, "GAME_OVER", "game has already ended")
	ErrOpponentSecretMissing = newError(KindConflict, "OPPONENT_SECRET_MISSING", "opponent has not submitted a secret number")

	// Not found errors
	ErrPlayerNotFound  = newError(KindNotFound, "PLAYER_NOT_FOUND", "player not found")
	ErrSessionNotFound = newError(KindNotFound, "ROOM_NOT_FOUND", "room not found")

	// Transient infrastructure errors
	ErrPersistenceUnavailable = newError(KindTransient, "PERSISTENCE_UNAVAILABLE", "game store unavailable, try again")
)

// KindOf returns the kind of a (possibly wrapped) domain error.
// Errors that are not domain errors are internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the reason code of a (possibly wrapped) domain error
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}
