package services

import (
	"errors"
	"log"
	"math"

	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/study"
	"github.com/studydeck/studydeck/internal/types"
	"gorm.io/gorm"
)

// SaveSessionInput is the contract for recording one completed sitting
type SaveSessionInput struct {
	DeckID             string `json:"deckId"`
	CorrectCount       int    `json:"correctCount"`
	IncorrectCount     int    `json:"incorrectCount"`
	TotalCards         int    `json:"totalCards"`
	AccuracyPercentage int    `json:"accuracyPercentage"`
}

func validateSaveSessionInput(in SaveSessionInput) map[string][]string {
	fields := make(map[string][]string)

	if in.DeckID == "" {
		fields["deckId"] = append(fields["deckId"], "Deck id is required")
	}
	if in.CorrectCount < 0 {
		fields["correctCount"] = append(fields["correctCount"], "Correct count must be >= 0")
	}
	if in.IncorrectCount < 0 {
		fields["incorrectCount"] = append(fields["incorrectCount"], "Incorrect count must be >= 0")
	}
	if in.TotalCards < 1 {
		fields["totalCards"] = append(fields["totalCards"], "Total cards must be >= 1")
	}
	if in.AccuracyPercentage < 0 || in.AccuracyPercentage > 100 {
		fields["accuracyPercentage"] = append(fields["accuracyPercentage"],
			"Accuracy percentage must be between 0 and 100")
	}

	// Skipped cards leave outcomes unset, so the graded counts may fall
	// short of the total but can never exceed it.
	if in.TotalCards >= 1 && in.CorrectCount >= 0 && in.IncorrectCount >= 0 &&
		in.CorrectCount+in.IncorrectCount > in.TotalCards {
		fields["totalCards"] = append(fields["totalCards"],
			"Graded counts cannot exceed total cards")
	}

	if in.TotalCards >= 1 && in.AccuracyPercentage >= 0 && in.AccuracyPercentage <= 100 {
		expected := int(math.Round(float64(in.CorrectCount) / float64(in.TotalCards) * 100))
		if in.AccuracyPercentage != expected {
			fields["accuracyPercentage"] = append(fields["accuracyPercentage"],
				"Accuracy percentage does not match the graded counts")
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// SaveStudySession validates and persists one completed sitting's
// aggregate counts as an immutable row. Validation runs entirely before
// any write: structure first, then identity, then ownership.
func SaveStudySession(db *gorm.DB, externalID string, in SaveSessionInput) (*models.StudySession, *types.ServiceError) {
	if fields := validateSaveSessionInput(in); fields != nil {
		return nil, types.NewValidationError(fields)
	}

	if externalID == "" {
		return nil, types.NewServiceError(types.ErrUnauthenticated, "Unauthorized")
	}

	user, serr := ResolveUser(db, externalID)
	if serr != nil {
		return nil, serr
	}

	var deck models.Deck
	err := db.Where("id = ? AND user_id = ?", in.DeckID, user.ID).First(&deck).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.NewServiceError(types.ErrOwnership, "Deck not found or access denied")
		}
		log.Printf("Deck lookup failed while saving session: %v", err)
		return nil, types.NewServiceError(types.ErrPersistence, "Failed to save study session")
	}

	session := models.StudySession{
		UserID:             user.ID,
		DeckID:             in.DeckID,
		CorrectCount:       in.CorrectCount,
		IncorrectCount:     in.IncorrectCount,
		TotalCards:         in.TotalCards,
		AccuracyPercentage: in.AccuracyPercentage,
	}
	if err := db.Create(&session).Error; err != nil {
		log.Printf("Study session insert failed for deck %s: %v", in.DeckID, err)
		return nil, types.NewServiceError(types.ErrPersistence, "Failed to save study session")
	}

	return &session, nil
}

// SessionRecorder adapts SaveStudySession to the study engine's
// completion trigger for one authenticated caller.
type SessionRecorder struct {
	DB         *gorm.DB
	ExternalID string
}

// RecordResult persists the engine's completion tallies
func (r *SessionRecorder) RecordResult(result study.Result) error {
	_, serr := SaveStudySession(r.DB, r.ExternalID, SaveSessionInput{
		DeckID:             result.DeckID,
		CorrectCount:       result.CorrectCount,
		IncorrectCount:     result.IncorrectCount,
		TotalCards:         result.TotalCards,
		AccuracyPercentage: result.AccuracyPercentage,
	})
	if serr != nil {
		return serr
	}
	return nil
}
