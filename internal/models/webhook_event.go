package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent is an audit row for one verified identity-provider event.
// EventID carries the provider's delivery id; its unique index makes
// redeliveries idempotent.
type WebhookEvent struct {
	ID         string         `gorm:"type:char(36);primaryKey"`
	EventID    string         `gorm:"size:255;not null;uniqueIndex"`
	EventType  string         `gorm:"size:64;not null"`
	Payload    datatypes.JSON `gorm:"type:json"`
	ReceivedAt time.Time
}

// BeforeCreate assigns a random UUID primary key and stamps receipt
func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = time.Now().UTC()
	}
	return nil
}

// TableName overrides the table name for WebhookEvent
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
