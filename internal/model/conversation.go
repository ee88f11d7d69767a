package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultConversationTitle = "New Conversation"
	ChatConversationTitle    = "AI Assistant Chat"
)

// MessageRole identifies who authored a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Conversation is an ordered chat transcript owned by one account.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"-"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Message is one immutable turn inside a conversation.
type Message struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID      `gorm:"type:uuid;index;not null" json:"conversation_id"`
	Role           MessageRole    `gorm:"size:16;index;not null" json:"role"`
	Content        string         `gorm:"not null" json:"content"`
	Timestamp      time.Time      `gorm:"index;not null" json:"timestamp"`
	Language       string         `gorm:"size:10;not null" json:"language"`
	Metadata       datatypes.JSON `json:"metadata_json,omitempty"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
