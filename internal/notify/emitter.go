// Package notify is the outbound notification boundary. Emission is
// fire-and-forget: callers log failures and move on.
package notify

import (
	"log"
)

// Lifecycle event types pushed over the notification boundary.
const (
	EventAppointmentRequested = "appointment_requested"
	EventAppointmentConfirmed = "appointment_confirmed"
	EventAppointmentRejected  = "appointment_rejected"
	EventAppointmentCompleted = "appointment_completed"
	EventAppointmentFollowUp  = "appointment_followup"
)

// Emitter delivers lifecycle events to a user. Implementations must never
// block the caller's transaction; a failed emit is the implementation's
// problem to report, not to retry.
type Emitter interface {
	Emit(userID, eventType string, context map[string]interface{}) error
}

// LogEmitter writes events to the process log. The default wiring until a
// real push provider is attached.
type LogEmitter struct{}

func (LogEmitter) Emit(userID, eventType string, context map[string]interface{}) error {
	log.Printf("notify: user=%s event=%s context=%v", userID, eventType, context)
	return nil
}
