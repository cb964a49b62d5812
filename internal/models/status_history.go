package models

import (
	"time"
)

// StatusHistory is the append-only audit trail of appointment status
// changes. OldStatus is nil only for the entry written at creation; every
// later entry's OldStatus must equal the previous entry's NewStatus.
type StatusHistory struct {
	BaseModel
	AppointmentID string             `gorm:"size:36;index" json:"appointmentId"`
	OldStatus     *AppointmentStatus `gorm:"size:30" json:"oldStatus"`
	NewStatus     AppointmentStatus  `gorm:"size:30" json:"newStatus"`
	ChangedBy     string             `gorm:"size:36" json:"changedBy"`
	ChangedByRole Role               `gorm:"size:20" json:"changedByRole"`
	Notes         string             `gorm:"type:text" json:"notes,omitempty"`
	ChangedAt     time.Time          `gorm:"index" json:"changedAt"`
}
