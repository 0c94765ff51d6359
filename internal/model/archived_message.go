package model

import "time"

// ArchivedMessage is the write-only transcript row kept when the archive is enabled.
type ArchivedMessage struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DeviceID       string    `gorm:"size:64;not null;index" json:"device_id"`
	IdentityID     string    `gorm:"size:64;not null;index" json:"identity_id"`
	ConversationID string    `gorm:"size:96;not null;index" json:"conversation_id"`
	BranchID       string    `gorm:"size:64;index" json:"branch_id"`
	AssistantID    string    `gorm:"size:64;index" json:"assistant_id"`
	MessageID      string    `gorm:"size:64;not null;uniqueIndex" json:"message_id"`
	Role           string    `gorm:"size:16;not null" json:"role"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	SentAt         time.Time `json:"sent_at"`
	CreatedAt      time.Time `json:"created_at"`
}
