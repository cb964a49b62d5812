package appointment

import (
	"fmt"
	"time"

	"counseling-app-server/internal/models"
)

// ValidationError reports malformed input (past scheduling, missing
// fields). Never retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NotFoundError reports an unknown appointment or user.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidTransitionError reports an illegal status edge. The caller must
// refresh its view of the appointment before retrying.
type InvalidTransitionError struct {
	From models.AppointmentStatus
	To   models.AppointmentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// GateClosedError reports a message attempted outside the open window.
// OpensAt is the zero time when the conversation is closed for good
// (completed/rejected) rather than not yet open.
type GateClosedError struct {
	AppointmentID string
	OpensAt       time.Time
}

func (e *GateClosedError) Error() string {
	if e.OpensAt.IsZero() {
		return "conversation is closed for appointment " + e.AppointmentID
	}
	return fmt.Sprintf("conversation for appointment %s opens at %s", e.AppointmentID, e.OpensAt.Format(time.RFC3339))
}

// PersistenceError wraps a store failure. The triggering write has been
// rolled back; the caller may retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
