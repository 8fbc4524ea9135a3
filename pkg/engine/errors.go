package engine

import (
	"context"
	"errors"

	"github.com/awsbridge/aws-profile-bridge/pkg/console"
	"github.com/awsbridge/aws-profile-bridge/pkg/credential"
	"github.com/awsbridge/aws-profile-bridge/pkg/sso"
)

// ErrorKind is the coarse classification transports report to the client.
// All failures recover into one of these; nothing panics across the engine
// boundary.
type ErrorKind string

const (
	KindNotFound              ErrorKind = "not_found"
	KindIncompleteCredentials ErrorKind = "incomplete_credentials"
	KindTokenUnavailable      ErrorKind = "token_unavailable"
	KindExchangeFailed        ErrorKind = "exchange_failed"
	KindTimeout               ErrorKind = "timeout"
	KindInternal              ErrorKind = "internal"
)

// Classify maps err onto the taxonomy.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return KindNotFound
	case errors.Is(err, credential.ErrIncomplete):
		return KindIncompleteCredentials
	case errors.Is(err, sso.ErrNoToken):
		return KindTokenUnavailable
	case errors.Is(err, console.ErrExchangeTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, console.ErrExchangeFailed):
		return KindExchangeFailed
	default:
		return KindInternal
	}
}

// ErrorPayload is the structured error surfaced over the transports. The
// message carries profile and source names only, never key material.
type ErrorPayload struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// PayloadFor builds the transport payload for err.
func PayloadFor(err error) ErrorPayload {
	return ErrorPayload{Kind: Classify(err), Message: err.Error()}
}
