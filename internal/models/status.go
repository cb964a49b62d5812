package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending             AppointmentStatus = "pending"
	StatusPendingConfirmation AppointmentStatus = "pending_confirmation"
	StatusConfirmed           AppointmentStatus = "confirmed"
	StatusConfirmedReschedule AppointmentStatus = "confirmed_reschedule"
	StatusCompleted           AppointmentStatus = "completed"
	StatusRejected            AppointmentStatus = "rejected"
)

// transitions is the adjacency table of legal status edges. Terminal
// statuses have no entry. Follow-up is not listed here: it is its own edge
// from any non-terminal status, handled by the ledger.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:             {StatusConfirmed, StatusRejected},
	StatusPendingConfirmation: {StatusConfirmed, StatusRejected},
	StatusConfirmed:           {StatusCompleted, StatusConfirmedReschedule, StatusRejected},
	StatusConfirmedReschedule: {StatusCompleted, StatusConfirmed, StatusRejected},
}

// Valid reports whether s is a member of the closed status enumeration.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPendingConfirmation, StatusConfirmed,
		StatusConfirmedReschedule, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// CanTransitionTo reports whether the edge s -> next is legal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ConversationOpen reports whether the appointment's chat accepts messages
// (subject to the availability gate). Completed conversations are read-only
// history, not open.
func (s AppointmentStatus) ConversationOpen() bool {
	return s == StatusConfirmed || s == StatusConfirmedReschedule
}
