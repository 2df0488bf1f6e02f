package domain

import "errors"

var (
	ErrMalformedEndpoint = errors.New("malformed wallet endpoint")
	ErrConnectTimeout    = errors.New("timed out waiting for wallet approval")
	ErrConnectInProgress = errors.New("wallet connection already in progress")
	ErrSessionRejected   = errors.New("wallet rejected the session")
	ErrNoActiveSession   = errors.New("no active wallet session")
	ErrRecordNotFound    = errors.New("record not found")
	ErrIndexOutOfRange   = errors.New("record index out of range")
	ErrSecretNotFound    = errors.New("secret not found")
)
