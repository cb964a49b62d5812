package appointment

import (
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"counseling-app-server/internal/models"
	"counseling-app-server/internal/notify"
)

// Actor identifies who is driving a status change.
type Actor struct {
	ID   string
	Role models.Role
}

// ConversationCloser is how the ledger tells the messaging side that a
// conversation is over. Wired to the chat gateway in main; an interface
// here so the ledger never depends on transport code.
type ConversationCloser interface {
	ConversationCompleted(appointmentID string)
	ConversationFollowedUp(appointmentID, successorID string)
}

// Ledger owns appointment records and their canonical status. Every status
// write commits together with its audit entry; an appointment never exists
// with a status lacking a matching history row.
type Ledger struct {
	db      *gorm.DB
	auditor *Auditor
	emitter notify.Emitter
	closer  ConversationCloser
}

func NewLedger(db *gorm.DB, auditor *Auditor, emitter notify.Emitter) *Ledger {
	return &Ledger{db: db, auditor: auditor, emitter: emitter}
}

// SetCloser attaches the conversation closer. Separate from the
// constructor because the gateway is built after the ledger.
func (l *Ledger) SetCloser(c ConversationCloser) {
	l.closer = c
}

// CreateRequest carries the fields needed to book an appointment.
type CreateRequest struct {
	StudentID   string
	CounselorID string
	Type        models.AppointmentType
	Mode        models.AppointmentMode
	ScheduledAt time.Time
	Reason      string
	InitiatedBy models.Role
}

// Create books a new appointment in Pending status, or PendingConfirmation
// when the counselor initiated it. The creation audit entry (nil old
// status) commits in the same transaction.
func (l *Ledger) Create(req CreateRequest) (*models.Appointment, error) {
	if req.StudentID == "" || req.CounselorID == "" {
		return nil, &ValidationError{Reason: "student and counselor are required"}
	}
	if req.Reason == "" {
		return nil, &ValidationError{Reason: "reason is required"}
	}
	if !req.ScheduledAt.After(time.Now()) {
		return nil, &ValidationError{Reason: "scheduled time must be in the future"}
	}

	if err := l.verifyUser(req.StudentID, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := l.verifyUser(req.CounselorID, models.RoleCounselor); err != nil {
		return nil, err
	}

	status := models.StatusPending
	actorID := req.StudentID
	actorRole := models.RoleStudent
	if req.InitiatedBy == models.RoleCounselor {
		status = models.StatusPendingConfirmation
		actorID = req.CounselorID
		actorRole = models.RoleCounselor
	}

	appt := models.Appointment{
		StudentID:   req.StudentID,
		CounselorID: req.CounselorID,
		Type:        req.Type,
		Mode:        req.Mode,
		ScheduledAt: req.ScheduledAt,
		Reason:      req.Reason,
		Status:      status,
	}

	err := l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&appt).Error; err != nil {
			return err
		}
		return l.auditor.Record(tx, appt.ID, nil, status, actorID, actorRole, "appointment requested")
	})
	if err != nil {
		return nil, &PersistenceError{Op: "create appointment", Err: err}
	}

	l.emit(appt.Counterpart(actorID), notify.EventAppointmentRequested, map[string]interface{}{
		"appointmentId": appt.ID,
		"scheduledAt":   appt.ScheduledAt,
	})
	return &appt, nil
}

// Transition moves an appointment along one edge of the status graph and
// records the change atomically. Terminal appointments reject every edge.
func (l *Ledger) Transition(appointmentID string, next models.AppointmentStatus, actor Actor, notes string) (*models.Appointment, error) {
	if !next.Valid() {
		return nil, &ValidationError{Reason: "unknown status " + string(next)}
	}

	appt, err := l.Get(appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: appt.Status, To: next}
	}

	old := appt.Status
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).
			Update("status", next).Error; err != nil {
			return err
		}
		if err := l.auditor.Record(tx, appt.ID, &old, next, actor.ID, actor.Role, notes); err != nil {
			return err
		}
		if next == models.StatusConfirmed {
			return l.ensureCase(tx, appt)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAuditChain) {
			return nil, &InvalidTransitionError{From: old, To: next}
		}
		return nil, &PersistenceError{Op: "transition appointment", Err: err}
	}
	appt.Status = next

	l.afterTransition(appt, next, actor)
	return appt, nil
}

// RequestFollowUp completes the originating appointment and creates a
// linked successor in PendingConfirmation. Allowed from any non-terminal
// status; both writes and both audit entries commit as one unit.
func (l *Ledger) RequestFollowUp(appointmentID string, newScheduledAt time.Time, t models.AppointmentType, m models.AppointmentMode, actor Actor) (*models.Appointment, error) {
	if !newScheduledAt.After(time.Now()) {
		return nil, &ValidationError{Reason: "follow-up time must be in the future"}
	}

	appt, err := l.Get(appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.Status.Terminal() {
		return nil, &InvalidTransitionError{From: appt.Status, To: models.StatusCompleted}
	}

	successor := models.Appointment{
		StudentID:   appt.StudentID,
		CounselorID: appt.CounselorID,
		Type:        t,
		Mode:        m,
		ScheduledAt: newScheduledAt,
		Reason:      appt.Reason,
		Status:      models.StatusPendingConfirmation,
		ParentID:    appt.ID,
	}

	old := appt.Status
	err = l.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Appointment{}).Where("id = ?", appt.ID).
			Update("status", models.StatusCompleted).Error; err != nil {
			return err
		}
		if err := tx.Create(&successor).Error; err != nil {
			return err
		}
		if err := l.auditor.Record(tx, appt.ID, &old, models.StatusCompleted, actor.ID, actor.Role,
			"completed with follow-up "+successor.ID); err != nil {
			return err
		}
		return l.auditor.Record(tx, successor.ID, nil, models.StatusPendingConfirmation,
			actor.ID, actor.Role, "follow-up of "+appt.ID)
	})
	if err != nil {
		return nil, &PersistenceError{Op: "request follow-up", Err: err}
	}
	appt.Status = models.StatusCompleted

	if l.closer != nil {
		l.closer.ConversationFollowedUp(appt.ID, successor.ID)
	}
	l.emit(appt.StudentID, notify.EventAppointmentFollowUp, map[string]interface{}{
		"appointmentId": appt.ID,
		"successorId":   successor.ID,
	})
	l.emit(appt.CounselorID, notify.EventAppointmentFollowUp, map[string]interface{}{
		"appointmentId": appt.ID,
		"successorId":   successor.ID,
	})
	return &successor, nil
}

// Get loads one appointment.
func (l *Ledger) Get(appointmentID string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := l.db.First(&appt, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "appointment", ID: appointmentID}
		}
		return nil, &PersistenceError{Op: "load appointment", Err: err}
	}
	return &appt, nil
}

// ListForUser returns the appointments a user participates in, soonest
// first. Admins see everything.
func (l *Ledger) ListForUser(actor Actor) ([]models.Appointment, error) {
	var appts []models.Appointment
	query := l.db.Preload("Student").Preload("Counselor").Order("scheduled_at asc")
	switch actor.Role {
	case models.RoleStudent:
		query = query.Where("student_id = ?", actor.ID)
	case models.RoleCounselor:
		query = query.Where("counselor_id = ?", actor.ID)
	case models.RoleAdmin:
		// no filter
	default:
		return nil, &ValidationError{Reason: "unknown role " + string(actor.Role)}
	}
	if err := query.Find(&appts).Error; err != nil {
		return nil, &PersistenceError{Op: "list appointments", Err: err}
	}
	return appts, nil
}

// History exposes the auditor's ordered trail.
func (l *Ledger) History(appointmentID string) ([]models.StatusHistory, error) {
	if _, err := l.Get(appointmentID); err != nil {
		return nil, err
	}
	return l.auditor.History(appointmentID)
}

// ensureCase opens the guidance case for a confirmed appointment. The
// unique index on appointment_id makes concurrent confirmations converge
// on a single row.
func (l *Ledger) ensureCase(tx *gorm.DB, appt *models.Appointment) error {
	gc := models.GuidanceCase{
		AppointmentID: appt.ID,
		StudentID:     appt.StudentID,
		CounselorID:   appt.CounselorID,
	}
	return tx.Where("appointment_id = ?", appt.ID).FirstOrCreate(&gc).Error
}

func (l *Ledger) afterTransition(appt *models.Appointment, next models.AppointmentStatus, actor Actor) {
	switch next {
	case models.StatusConfirmed, models.StatusConfirmedReschedule:
		l.emit(appt.Counterpart(actor.ID), notify.EventAppointmentConfirmed, map[string]interface{}{
			"appointmentId": appt.ID,
			"scheduledAt":   appt.ScheduledAt,
		})
	case models.StatusRejected:
		l.emit(appt.Counterpart(actor.ID), notify.EventAppointmentRejected, map[string]interface{}{
			"appointmentId": appt.ID,
		})
	case models.StatusCompleted:
		if l.closer != nil {
			l.closer.ConversationCompleted(appt.ID)
		}
		l.emit(appt.StudentID, notify.EventAppointmentCompleted, map[string]interface{}{
			"appointmentId": appt.ID,
		})
	}
}

// emit is fire-and-forget: notification failures are logged and swallowed,
// never rolled back into the triggering transition.
func (l *Ledger) emit(userID, eventType string, ctx map[string]interface{}) {
	if l.emitter == nil || userID == "" {
		return
	}
	if err := l.emitter.Emit(userID, eventType, ctx); err != nil {
		log.Printf("notification emit failed: user=%s event=%s: %v", userID, eventType, err)
	}
}

func (l *Ledger) verifyUser(id string, role models.Role) error {
	var user models.User
	if err := l.db.Where("id = ? AND role = ?", id, role).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: string(role), ID: id}
		}
		return &PersistenceError{Op: "verify " + string(role), Err: err}
	}
	return nil
}
