package domain

import "errors"

var (
	// ErrUpstreamUnavailable means the message corpus could not be reached at all.
	ErrUpstreamUnavailable = errors.New("message corpus unavailable")
	// ErrAccessDenied is returned when the upstream rejects the client (401/402/403/429).
	ErrAccessDenied = errors.New("access to message corpus denied")

	ErrEmptyQuestion    = errors.New("question cannot be empty")
	ErrQuestionTooShort = errors.New("question too short")
	ErrQuestionTooLong  = errors.New("question too long")
)
