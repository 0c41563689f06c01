package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Audit actions recorded in the chat log. The set is open; these are the
// ones the server emits itself.
const (
	ActionChatCreated      = "ChatCreated"
	ActionChatRenamed      = "ChatRenamed"
	ActionChatRemoved      = "ChatRemoved"
	ActionUserMessage      = "UserMessage"
	ActionAssistantMessage = "AssistantMessage"
)

// Chat groups an ordered set of messages under one externally generated id.
type Chat struct {
	ID       string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name     string    `gorm:"type:varchar(255)" json:"name"`
	Messages []Message `gorm:"foreignKey:ChatID" json:"messages,omitempty"`
}

// Message content is immutable once persisted; new turns append new rows.
type Message struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string    `gorm:"index;type:varchar(64)" json:"chat_id"`
	Role      string    `gorm:"type:varchar(64)" json:"role"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatLog is the append-only audit trail. Rows are never updated or deleted.
type ChatLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string    `gorm:"index;type:varchar(64)" json:"chat_id"`
	Action    string    `gorm:"type:varchar(64)" json:"action"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func InstallDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&Chat{},
		&Message{},
		&ChatLog{})
}
