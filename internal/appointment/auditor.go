package appointment

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"counseling-app-server/internal/models"
)

// ErrAuditChain is returned when an audit write's old status disagrees
// with the last recorded entry. It indicates the caller acted on a stale
// read of the appointment.
var ErrAuditChain = errors.New("audit chain mismatch")

// Auditor appends immutable status-change records and reconstructs the
// ordered history of an appointment.
type Auditor struct {
	DB *gorm.DB
}

func NewAuditor(db *gorm.DB) *Auditor {
	return &Auditor{DB: db}
}

// Record appends one history entry inside the caller's transaction. old is
// nil only for the entry written at appointment creation; otherwise it
// must match the last entry's new status.
func (a *Auditor) Record(tx *gorm.DB, appointmentID string, old *models.AppointmentStatus, next models.AppointmentStatus, actorID string, actorRole models.Role, notes string) error {
	var last models.StatusHistory
	err := tx.Where("appointment_id = ?", appointmentID).
		Order("changed_at desc").First(&last).Error
	switch {
	case err == nil:
		if old == nil || *old != last.NewStatus {
			return fmt.Errorf("%w: appointment %s last recorded %s", ErrAuditChain, appointmentID, last.NewStatus)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if old != nil {
			return fmt.Errorf("%w: appointment %s has no history but old status %s given", ErrAuditChain, appointmentID, *old)
		}
	default:
		return err
	}

	entry := models.StatusHistory{
		AppointmentID: appointmentID,
		OldStatus:     old,
		NewStatus:     next,
		ChangedBy:     actorID,
		ChangedByRole: actorRole,
		Notes:         notes,
		ChangedAt:     time.Now(),
	}
	return tx.Create(&entry).Error
}

// History returns the appointment's audit trail ascending by change time.
func (a *Auditor) History(appointmentID string) ([]models.StatusHistory, error) {
	var entries []models.StatusHistory
	err := a.DB.Where("appointment_id = ?", appointmentID).
		Order("changed_at asc").Find(&entries).Error
	if err != nil {
		return nil, &PersistenceError{Op: "load status history", Err: err}
	}
	return entries, nil
}
