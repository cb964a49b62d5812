package models

import (
	"time"
)

// AppointmentType represents the kind of counseling session
type AppointmentType string

const (
	TypeAcademic AppointmentType = "academic"
	TypeCareer   AppointmentType = "career"
	TypePersonal AppointmentType = "personal"
	TypeOther    AppointmentType = "other"
)

// AppointmentMode represents how the session is held
type AppointmentMode string

const (
	ModeInPerson AppointmentMode = "in_person"
	ModeOnline   AppointmentMode = "online"
)

// Appointment represents a scheduled counseling session between a student
// and a counselor. Status is mutated only through the ledger; rows are
// never deleted.
type Appointment struct {
	BaseModel
	StudentID   string            `gorm:"size:36;index" json:"studentId"`
	CounselorID string            `gorm:"size:36;index" json:"counselorId"`
	Type        AppointmentType   `gorm:"size:20" json:"type"`
	Mode        AppointmentMode   `gorm:"size:20" json:"mode"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	Reason      string            `gorm:"size:255" json:"reason"`
	Status      AppointmentStatus `gorm:"size:30;default:'pending'" json:"status"`
	ParentID    string            `gorm:"size:36;index" json:"parentId,omitempty"` // originating appointment for follow-ups

	// Relations
	Student   User `gorm:"foreignKey:StudentID" json:"-"`
	Counselor User `gorm:"foreignKey:CounselorID" json:"-"`
}

// Participant reports whether userID is one of the two parties.
func (a *Appointment) Participant(userID string) bool {
	return userID == a.StudentID || userID == a.CounselorID
}

// Counterpart returns the other party of the appointment, or "" if userID
// is not a participant.
func (a *Appointment) Counterpart(userID string) string {
	switch userID {
	case a.StudentID:
		return a.CounselorID
	case a.CounselorID:
		return a.StudentID
	}
	return ""
}
