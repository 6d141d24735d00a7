package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deck name/description length limits, enforced by the deck service.
const (
	DeckNameMaxLen        = 100
	DeckDescriptionMaxLen = 500
)

// Deck is a named collection of cards owned by exactly one user.
// Deleting a deck cascades to its cards and study sessions at the
// store level.
type Deck struct {
	ID          string `gorm:"type:char(36);primaryKey"`
	UserID      string `gorm:"type:char(36);not null;index"`
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"size:500"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Cards    []Card         `gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE"`
	Sessions []StudySession `gorm:"foreignKey:DeckID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns a random UUID primary key
func (d *Deck) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for Deck
func (Deck) TableName() string {
	return "decks"
}
