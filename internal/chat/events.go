package chat

// Server-to-client event types on the real-time transport.
const (
	EventReceiveMessage       = "receive_message"
	EventUnreadUpdate         = "unread_update"
	EventAppointmentCompleted = "appointment_completed"
	EventAppointmentFollowUp  = "appointment_followup"
)

// UnreadCounters is the recomputed unread state pushed with every
// unread_update and returned by MarkRead. Total covers all of the user's
// conversations; Count is scoped to AppointmentID.
type UnreadCounters struct {
	Total         int64  `json:"total"`
	AppointmentID string `json:"appointmentId"`
	Count         int64  `json:"count"`
}
