package chat

import (
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"counseling-app-server/internal/appointment"
	"counseling-app-server/internal/models"
)

// Gateway is the messaging side of the system. The store is authoritative:
// every send persists before anything is pushed, unread counters are
// recomputed from persisted rows on every change, and a client that misses
// a push recovers through ListConversations/Messages after reconnect.
type Gateway struct {
	db  *gorm.DB
	hub *Hub

	// Now is the gateway's clock, swappable in tests.
	Now func() time.Time
}

func NewGateway(db *gorm.DB, hub *Hub) *Gateway {
	return &Gateway{db: db, hub: hub, Now: time.Now}
}

// Send persists a message in the given appointment's conversation and
// fans it out to the receiver's channels. The gate short-circuits before
// any persistence attempt; a failed persist never broadcasts. The sender
// gets no echo (clients render their own optimistic copy) and receivers
// de-duplicate on (appointmentId, sender, content, timestamp).
func (g *Gateway) Send(appointmentID, senderID, receiverID, content string) (*models.Message, error) {
	if content == "" {
		return nil, &appointment.ValidationError{Reason: "message content is required"}
	}

	appt, err := g.loadAppointment(appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Participant(senderID) || appt.Counterpart(senderID) != receiverID {
		return nil, &appointment.ValidationError{Reason: "sender and receiver must be the appointment participants"}
	}
	if !appt.Status.ConversationOpen() {
		return nil, &appointment.GateClosedError{AppointmentID: appt.ID}
	}
	if !appointment.GateOpen(appt.ScheduledAt, g.Now()) {
		return nil, &appointment.GateClosedError{AppointmentID: appt.ID, OpensAt: appt.ScheduledAt}
	}

	msg := models.Message{
		AppointmentID: appt.ID,
		SenderID:      senderID,
		ReceiverID:    receiverID,
		Content:       content,
	}
	if err := g.db.Create(&msg).Error; err != nil {
		return nil, &appointment.PersistenceError{Op: "persist message", Err: err}
	}

	g.push(receiverID, map[string]interface{}{
		"type":          EventReceiveMessage,
		"appointmentId": msg.AppointmentID,
		"messageId":     msg.ID,
		"author":        msg.SenderID,
		"content":       msg.Content,
		"time":          msg.CreatedAt,
	})
	g.broadcastUnread(receiverID, appt.ID)

	return &msg, nil
}

// MarkRead marks every message addressed to userID in the conversation as
// read and returns the refreshed counters. Idempotent: a second call is a
// no-op returning zero counts for that conversation.
func (g *Gateway) MarkRead(userID, appointmentID string) (UnreadCounters, error) {
	appt, err := g.loadAppointment(appointmentID)
	if err != nil {
		return UnreadCounters{}, err
	}
	if !appt.Participant(userID) {
		return UnreadCounters{}, &appointment.ValidationError{Reason: "user is not a participant of this conversation"}
	}

	err = g.db.Model(&models.Message{}).
		Where("appointment_id = ? AND receiver_id = ? AND is_read = ?", appt.ID, userID, false).
		Update("is_read", true).Error
	if err != nil {
		return UnreadCounters{}, &appointment.PersistenceError{Op: "mark messages read", Err: err}
	}

	return g.broadcastUnread(userID, appt.ID), nil
}

// ConversationPreview is one row of a user's conversation list.
type ConversationPreview struct {
	AppointmentID  string                   `json:"appointmentId"`
	Status         models.AppointmentStatus `json:"status"`
	Partner        models.UserSanitized     `json:"partner"`
	ScheduledAt    time.Time                `json:"scheduledAt"`
	Open           bool                     `json:"open"`
	OpensInSeconds int64                    `json:"opensInSeconds"`
	Historical     bool                     `json:"historical"`
	LastMessage    *models.Message          `json:"lastMessage,omitempty"`
	UnreadCount    int64                    `json:"unreadCount"`
}

// ListConversations returns the user's active conversations (confirmed
// appointments, newest first) followed by completed ones as read-only
// history, each with a latest-message preview and unread count.
func (g *Gateway) ListConversations(userID string) ([]ConversationPreview, error) {
	var appts []models.Appointment
	err := g.db.Preload("Student").Preload("Counselor").
		Where("(student_id = ? OR counselor_id = ?) AND status IN ?", userID, userID,
			[]models.AppointmentStatus{
				models.StatusConfirmed,
				models.StatusConfirmedReschedule,
				models.StatusCompleted,
			}).
		Order("scheduled_at desc").Find(&appts).Error
	if err != nil {
		return nil, &appointment.PersistenceError{Op: "list conversations", Err: err}
	}

	now := g.Now()
	previews := make([]ConversationPreview, 0, len(appts))
	for _, appt := range appts {
		partner := appt.Counselor
		if userID == appt.CounselorID {
			partner = appt.Student
		}

		preview := ConversationPreview{
			AppointmentID:  appt.ID,
			Status:         appt.Status,
			Partner:        partner.Sanitize(),
			ScheduledAt:    appt.ScheduledAt,
			Open:           appt.Status.ConversationOpen() && appointment.GateOpen(appt.ScheduledAt, now),
			OpensInSeconds: appointment.SecondsUntilOpen(appt.ScheduledAt, now),
			Historical:     appt.Status == models.StatusCompleted,
		}

		var last models.Message
		err := g.db.Where("appointment_id = ?", appt.ID).
			Order("created_at desc").First(&last).Error
		if err == nil {
			preview.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &appointment.PersistenceError{Op: "load last message", Err: err}
		}

		count, err := g.unreadCount(userID, appt.ID)
		if err != nil {
			return nil, err
		}
		preview.UnreadCount = count

		previews = append(previews, preview)
	}
	return previews, nil
}

// Messages returns the conversation history ascending by creation time.
// Reads are repeatable: the same call with no intervening writes returns
// the same order, and a new message always sorts after committed ones.
func (g *Gateway) Messages(appointmentID, userID string) ([]models.Message, error) {
	appt, err := g.loadAppointment(appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Participant(userID) {
		return nil, &appointment.ValidationError{Reason: "user is not a participant of this conversation"}
	}

	var msgs []models.Message
	err = g.db.Preload("Sender").Where("appointment_id = ?", appt.ID).
		Order("created_at asc").Find(&msgs).Error
	if err != nil {
		return nil, &appointment.PersistenceError{Op: "load messages", Err: err}
	}
	return msgs, nil
}

// ConversationCompleted broadcasts closure so clients drop the
// conversation from their active lists. History stays queryable.
func (g *Gateway) ConversationCompleted(appointmentID string) {
	g.retire(appointmentID, map[string]interface{}{
		"type":          EventAppointmentCompleted,
		"appointmentId": appointmentID,
	})
}

// ConversationFollowedUp broadcasts closure of the originating
// conversation together with the successor's id.
func (g *Gateway) ConversationFollowedUp(appointmentID, successorID string) {
	g.retire(appointmentID, map[string]interface{}{
		"type":          EventAppointmentFollowUp,
		"appointmentId": appointmentID,
		"successorId":   successorID,
	})
}

func (g *Gateway) retire(appointmentID string, payload map[string]interface{}) {
	appt, err := g.loadAppointment(appointmentID)
	if err != nil {
		log.Printf("chat: retire skipped: %v", err)
		return
	}
	g.push(appt.StudentID, payload)
	g.push(appt.CounselorID, payload)
}

// broadcastUnread is the single counter-recomputation path, invoked from
// exactly two places: Send and MarkRead. Counters are always derived from
// persisted rows, never cached.
func (g *Gateway) broadcastUnread(userID, appointmentID string) UnreadCounters {
	counters := UnreadCounters{AppointmentID: appointmentID}

	if err := g.db.Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&counters.Total).Error; err != nil {
		log.Printf("chat: unread recompute failed for %s: %v", userID, err)
		return counters
	}
	count, err := g.unreadCount(userID, appointmentID)
	if err != nil {
		log.Printf("chat: unread recompute failed for %s: %v", userID, err)
		return counters
	}
	counters.Count = count

	g.push(userID, map[string]interface{}{
		"type":          EventUnreadUpdate,
		"total":         counters.Total,
		"appointmentId": counters.AppointmentID,
		"count":         counters.Count,
	})
	return counters
}

func (g *Gateway) unreadCount(userID, appointmentID string) (int64, error) {
	var count int64
	err := g.db.Model(&models.Message{}).
		Where("appointment_id = ? AND receiver_id = ? AND is_read = ?", appointmentID, userID, false).
		Count(&count).Error
	if err != nil {
		return 0, &appointment.PersistenceError{Op: "count unread messages", Err: err}
	}
	return count, nil
}

func (g *Gateway) push(userID string, payload map[string]interface{}) {
	if g.hub == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("chat: marshal push payload: %v", err)
		return
	}
	g.hub.SendToUser(userID, b)
}

func (g *Gateway) loadAppointment(appointmentID string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := g.db.First(&appt, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &appointment.NotFoundError{Resource: "appointment", ID: appointmentID}
		}
		return nil, &appointment.PersistenceError{Op: "load appointment", Err: err}
	}
	return &appt, nil
}
