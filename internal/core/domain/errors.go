package domain

import "errors"

var (
	// ErrInvalidCredentials is returned when the Remote Service refuses a login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRequestRejected is a semantic refusal of a mutating call (register, profile update).
	ErrRequestRejected = errors.New("request rejected by remote service")
	// ErrSessionRejected means the Remote Service reachably declared the token invalid.
	ErrSessionRejected = errors.New("session rejected")
	// ErrRemoteUnavailable covers transport failures, timeouts and 5xx answers.
	ErrRemoteUnavailable = errors.New("remote service unavailable")
	// ErrMalformedResponse is returned when a 2xx answer cannot be understood.
	ErrMalformedResponse = errors.New("malformed remote response")

	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCorrupt   = errors.New("stored session is corrupt")
	ErrNotAuthenticated = errors.New("not authenticated")
)
