package admission

import (
	"fmt"
	"net/http"
)

// Kind classifies admission failures. Every error leaving Handle is an *Error
// with one of these kinds; raw collaborator errors never cross the boundary.
type Kind int

const (
	KindForbidden Kind = iota + 1
	KindAlreadyExists
	KindBadRequest
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindForbidden:
		return "forbidden"
	case KindAlreadyExists:
		return "already_exists"
	case KindBadRequest:
		return "bad_request"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the typed failure surfaced by the admission controller.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	// MonitorID carries the conflicting monitor id for KindAlreadyExists.
	MonitorID string
	Err       error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

func forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Status: http.StatusForbidden, Message: message}
}

func alreadyExists(monitorID string) *Error {
	return &Error{
		Kind:      KindAlreadyExists,
		Status:    http.StatusConflict,
		Message:   fmt.Sprintf("threat intel monitor %s already exists", monitorID),
		MonitorID: monitorID,
	}
}

func badRequest(message string, err error) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: message, Err: err}
}

func internal(status int, message string, err error) *Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{Kind: KindInternal, Status: status, Message: message, Err: err}
}
