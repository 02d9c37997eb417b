package chaterr

import (
	"errors"

	"github.com/valyala/fasthttp"
)

// Error is a domain failure surfaced to the caller as an actionable message.
type Error struct {
	Kind    string
	Message string
	Code    int
}

func (e *Error) Error() string {
	return e.Message
}

// Predefined domain errors
var (
	ErrNotConnected     = &Error{"not_connected", "users are not connected", fasthttp.StatusForbidden}
	ErrNoSuchRequest    = &Error{"no_such_request", "no pending connection request", fasthttp.StatusNotFound}
	ErrNotResponder     = &Error{"not_responder", "only the recipient can respond to a connection request", fasthttp.StatusForbidden}
	ErrAlreadyConnected = &Error{"already_connected", "already connected", fasthttp.StatusConflict}
	ErrAlreadyPending   = &Error{"already_pending", "connection request already pending", fasthttp.StatusConflict}
	ErrInvalidTarget    = &Error{"invalid_target", "cannot target yourself", fasthttp.StatusBadRequest}
	ErrEmptyPayload     = &Error{"empty_payload", "message must have a body or an attachment", fasthttp.StatusBadRequest}
	ErrInvalidPayload   = &Error{"invalid_payload", "message must have either a body or an attachment, not both", fasthttp.StatusBadRequest}
	ErrBodyTooLarge     = &Error{"body_too_large", "message body too large", fasthttp.StatusRequestEntityTooLarge}
	ErrNotFound         = &Error{"not_found", "not found", fasthttp.StatusNotFound}
	ErrInvalidEmoji     = &Error{"invalid_emoji", "emoji is not in the reaction palette", fasthttp.StatusBadRequest}
	ErrInvalidUsername  = &Error{"invalid_username", "invalid username", fasthttp.StatusBadRequest}
	ErrInvalidDecision  = &Error{"invalid_decision", "decision must be ACCEPT or REJECT", fasthttp.StatusBadRequest}
	ErrInvalidCursor    = &Error{"invalid_cursor", "invalid cursor", fasthttp.StatusBadRequest}
	ErrAttachmentSize   = &Error{"attachment_too_large", "attachment too large", fasthttp.StatusRequestEntityTooLarge}
	ErrBadRequest       = &Error{"bad_request", "malformed request", fasthttp.StatusBadRequest}
)

var all = []*Error{
	ErrNotConnected,
	ErrNoSuchRequest,
	ErrNotResponder,
	ErrAlreadyConnected,
	ErrAlreadyPending,
	ErrInvalidTarget,
	ErrEmptyPayload,
	ErrInvalidPayload,
	ErrBodyTooLarge,
	ErrNotFound,
	ErrInvalidEmoji,
	ErrInvalidUsername,
	ErrInvalidDecision,
	ErrInvalidCursor,
	ErrAttachmentSize,
	ErrBadRequest,
}

// As returns the domain error wrapped in err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// FromKind maps a wire kind back to its sentinel so errors.Is works on the client side.
func FromKind(kind string) (*Error, bool) {
	for _, e := range all {
		if e.Kind == kind {
			return e, true
		}
	}
	return nil, false
}

// HTTPStatus returns the status code for err, 500 for anything that is not a domain error.
func HTTPStatus(err error) int {
	if e, ok := As(err); ok {
		return e.Code
	}
	return fasthttp.StatusInternalServerError
}
