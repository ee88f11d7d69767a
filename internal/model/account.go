package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account owns tasks and conversations. It is created either through
// email registration or by linking a Telegram user.
type Account struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        *string   `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string    `json:"-"`
	TelegramID   *int64    `gorm:"uniqueIndex" json:"-"`
	FirstName    string    `json:"-"`
	Username     string    `json:"-"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
