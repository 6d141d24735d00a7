package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CardSideMaxLen bounds the front and back text of a card.
const CardSideMaxLen = 1000

// Card is a front/back question-answer pair belonging to one deck.
// Ownership is transitive through the deck.
type Card struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	DeckID    string `gorm:"type:char(36);not null;index"`
	Front     string `gorm:"size:1000;not null"`
	Back      string `gorm:"size:1000;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BeforeCreate assigns a random UUID primary key
func (c *Card) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for Card
func (Card) TableName() string {
	return "cards"
}
