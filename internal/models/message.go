package models

// Message represents a chat message inside one appointment's conversation.
// Rows are immutable except for IsRead, which only the receiver flips.
type Message struct {
	BaseModel
	AppointmentID string `gorm:"size:36;index" json:"appointmentId"`
	SenderID      string `gorm:"size:36;index" json:"senderId"`
	ReceiverID    string `gorm:"size:36;index" json:"receiverId"`
	Content       string `gorm:"type:text" json:"content"`
	IsRead        bool   `gorm:"default:false;index" json:"isRead"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"sender"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}
