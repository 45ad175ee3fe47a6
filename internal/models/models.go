package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base replaces gorm.Model with string UUID keys, which is what clients see
// on the wire.
type Base struct {
	ID        string `gorm:"primaryKey;size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a new UUID when the caller did not set one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

type User struct {
	Base
	Username     string `gorm:"uniqueIndex;not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

type Deck struct {
	Base
	Name        string `gorm:"not null"`
	Description string
	UserID      string `gorm:"index;not null"`

	// CardCount is filled by list and get queries and is not a column.
	CardCount int `gorm:"-"`
}

type Card struct {
	Base
	Front  string `gorm:"not null"`
	Back   string `gorm:"not null"`
	DeckID string `gorm:"index;not null"`
}
