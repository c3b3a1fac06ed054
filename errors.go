// Package seguro provides the append-only event log ingestion/read-back
// service: fragmentation, FoundationDB batching, and the per-connection
// protocol state machine.
package seguro

import (
	"errors"
	"fmt"
)

// Error represents a structured seguro error with protocol/ship context.
type Error struct {
	Op        string    // Operation that failed (e.g. "parse", "commit", "handshake")
	ShipPoint string    // Client's @p, if known ("" if not yet identified)
	EventID   uint64    // Event id involved, if applicable
	HasEvent  bool      // whether EventID is meaningful (0 is a valid event id)
	Code      ErrorCode // high-level error category
	Msg       string    // human-readable message
	Inner     error     // wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.ShipPoint != "" {
		parts = append(parts, fmt.Sprintf("ship=%s", e.ShipPoint))
	}
	if e.HasEvent {
		parts = append(parts, fmt.Sprintf("event=%d", e.EventID))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("seguro: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("seguro: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support, comparing by Code.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode represents high-level error categories, per spec.md §7.
type ErrorCode string

const (
	// ErrCodeProtocolViolation covers malformed commands, bad bracketing,
	// out-of-order event ids, and anything else that terminates the
	// connection per spec.md §4.4/§7.
	ErrCodeProtocolViolation ErrorCode = "protocol violation"
	// ErrCodeResourceExhaustion covers read-buffer backpressure failures
	// that draining cannot resolve: the read buffer is still full after the
	// parser has consumed what it can.
	ErrCodeResourceExhaustion ErrorCode = "resource exhaustion"
	// ErrCodeTransaction covers FDB commit failures (conflicts, timeouts);
	// the current core does not auto-retry, per spec.md §7.
	ErrCodeTransaction ErrorCode = "transaction error"
	// ErrCodeShortRead covers a range read that observed fewer fragments
	// than the header declared.
	ErrCodeShortRead ErrorCode = "short read"
	// ErrCodeFatal covers anything else that should tear the connection
	// (or the process, for startup errors) down immediately.
	ErrCodeFatal ErrorCode = "fatal"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewProtocolError creates a protocol-violation error scoped to a ship.
func NewProtocolError(op, shipPoint, msg string) *Error {
	return &Error{Op: op, ShipPoint: shipPoint, Code: ErrCodeProtocolViolation, Msg: msg}
}

// NewEventError creates an error scoped to a specific event id.
func NewEventError(op, shipPoint string, eventID uint64, code ErrorCode, msg string) *Error {
	return &Error{Op: op, ShipPoint: shipPoint, EventID: eventID, HasEvent: true, Code: code, Msg: msg}
}

// WrapError wraps an existing error with seguro context, preserving an
// inner *Error's fields when present.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if se, ok := inner.(*Error); ok {
		return &Error{
			Op:        op,
			ShipPoint: se.ShipPoint,
			EventID:   se.EventID,
			HasEvent:  se.HasEvent,
			Code:      se.Code,
			Msg:       se.Msg,
			Inner:     se.Inner,
		}
	}
	return &Error{Op: op, Code: ErrCodeFatal, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given Code.
func IsCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
