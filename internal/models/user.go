package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan values resolved from the identity provider's subscription data.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// User is the local record for one external identity. One row per
// external id; provisioned just-in-time or via identity webhook events.
type User struct {
	ID         string `gorm:"type:char(36);primaryKey"`
	ExternalID string `gorm:"size:255;not null;uniqueIndex"`
	Email      string `gorm:"size:255;not null"`
	FirstName  string `gorm:"size:255"`
	LastName   string `gorm:"size:255"`
	Plan       string `gorm:"size:32;not null;default:free"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Decks []Deck `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate assigns a random UUID primary key
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
