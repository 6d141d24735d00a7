package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StudySession is the immutable result record of one completed study
// sitting. Written once by the session recorder, never updated.
type StudySession struct {
	ID                 string `gorm:"type:char(36);primaryKey"`
	UserID             string `gorm:"type:char(36);not null;index"`
	DeckID             string `gorm:"type:char(36);not null;index"`
	CorrectCount       int    `gorm:"not null;default:0"`
	IncorrectCount     int    `gorm:"not null;default:0"`
	TotalCards         int    `gorm:"not null"`
	AccuracyPercentage int    `gorm:"not null;default:0"`
	CompletedAt        time.Time
}

// BeforeCreate assigns a random UUID primary key and stamps completion
func (s *StudySession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CompletedAt.IsZero() {
		s.CompletedAt = time.Now().UTC()
	}
	return nil
}

// TableName overrides the table name for StudySession
func (StudySession) TableName() string {
	return "study_sessions"
}
