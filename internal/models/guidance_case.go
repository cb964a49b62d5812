package models

// GuidanceCase is the longer-lived record opened when an appointment is
// confirmed. The unique index on AppointmentID keeps concurrent student-
// and counselor-initiated confirmations from creating duplicate cases.
type GuidanceCase struct {
	BaseModel
	AppointmentID string `gorm:"size:36;uniqueIndex" json:"appointmentId"`
	StudentID     string `gorm:"size:36;index" json:"studentId"`
	CounselorID   string `gorm:"size:36;index" json:"counselorId"`
	Summary       string `gorm:"type:text" json:"summary,omitempty"`

	// Relations
	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}
