package domain

import "errors"

var (
	// ErrQuizNotFound indicates the referenced quiz document does not exist.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuizInvalid indicates a quiz document failed structural validation.
	ErrQuizInvalid = errors.New("invalid quiz")
	// ErrRoomNotFound indicates an unknown room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPlayerNotFound indicates the target player is not in the room.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrValidation indicates a malformed or incomplete event payload.
	ErrValidation = errors.New("invalid payload")
	// ErrUnauthorized indicates the connection lacks the role or room binding
	// the event requires.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrHostingDisabled indicates no host password is configured, so rooms
	// cannot be created or controlled.
	ErrHostingDisabled = errors.New("hosting disabled")
	// ErrInvalidPassword indicates host credential verification failed.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrRateLimited indicates the caller exceeded an attempt window.
	ErrRateLimited = errors.New("too many attempts")

	// ErrAlreadySubmitted indicates a second answer for the same question.
	ErrAlreadySubmitted = errors.New("already submitted")
	// ErrNotAcceptingAnswers indicates a submission outside the Question phase.
	ErrNotAcceptingAnswers = errors.New("not accepting answers")
	// ErrNotRegistered indicates the connection has no player binding.
	ErrNotRegistered = errors.New("not registered")
	// ErrNotInRoom indicates the connection has no room binding.
	ErrNotInRoom = errors.New("not in a room")
	// ErrWrongPhase indicates the room is not in the phase the action needs.
	ErrWrongPhase = errors.New("invalid state")
)
