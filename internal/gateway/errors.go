package gateway

import (
	"errors"
	"fmt"

	"aetheria.game/internal/protocol"
	"aetheria.game/internal/session"
)

// ValidationError is raised locally before any request is sent.
type ValidationError struct {
	Op     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s", e.Op, e.Field, e.Reason)
}

// AuthorityError is a rejection from the authority (status >= 400). Message
// is the authority's text, unmodified.
type AuthorityError struct {
	Op           string
	Status       int
	Code         string
	Message      string
	MissingReady []string
	MutedUntil   string
	RequestID    string
}

func (e *AuthorityError) Error() string {
	return fmt.Sprintf("%s: %s (%d %s)", e.Op, e.Message, e.Status, e.Code)
}

// TransportError means the round trip did not complete or the reply could not
// be decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Code classifies any gateway error into a protocol error code.
func Code(err error) string {
	var ae *AuthorityError
	var ve *ValidationError
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ae):
		return ae.Code
	case errors.As(err, &ve):
		return protocol.ErrInvalidInput
	case errors.As(err, &te):
		return protocol.ErrTransport
	case errors.Is(err, session.ErrTokenExpired):
		return protocol.ErrNoPermission
	default:
		return protocol.ErrInternal
	}
}

// Message is the player-facing text for err.
func Message(err error) string {
	var ae *AuthorityError
	if errors.As(err, &ae) {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
