package protocol

import "net/http"

const (
	// Client-side validation, never sent.
	ErrInvalidInput = "E_INVALID_INPUT"

	// Authority rejections.
	ErrBadRequest   = "E_BAD_REQUEST"
	ErrNoResource   = "E_NO_RESOURCE"
	ErrNoPermission = "E_NO_PERMISSION"
	ErrNotFound     = "E_NOT_FOUND"
	ErrConflict     = "E_CONFLICT"
	ErrLocked       = "E_LOCKED"
	ErrRateLimit    = "E_RATE_LIMIT"
	ErrInternal     = "E_INTERNAL"

	// Transport.
	ErrTransport = "E_TRANSPORT"
)

var knownCodes = map[string]struct{}{
	ErrInvalidInput: {},
	ErrBadRequest:   {},
	ErrNoResource:   {},
	ErrNoPermission: {},
	ErrNotFound:     {},
	ErrConflict:     {},
	ErrLocked:       {},
	ErrRateLimit:    {},
	ErrInternal:     {},
	ErrTransport:    {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeForStatus classifies an authority error response. The authority answers
// a PA shortfall with 400, so a bare 400 maps to E_NO_RESOURCE.
func CodeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return ErrNoResource
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrNoPermission
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusUnprocessableEntity:
		return ErrBadRequest
	case status == http.StatusLocked:
		return ErrLocked
	case status == http.StatusTooManyRequests:
		return ErrRateLimit
	case status >= 500:
		return ErrInternal
	case status >= 400:
		return ErrBadRequest
	default:
		return ""
	}
}

// ErrorBody is the JSON body of every rejected request.
type ErrorBody struct {
	Error        string   `json:"error"`
	MutedUntil   string   `json:"muted_until,omitempty"`
	MissingReady []string `json:"missing_ready,omitempty"`
}
