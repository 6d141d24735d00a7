package services

import (
	"log"
	"math"
	"time"

	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/types"
	"gorm.io/gorm"
	"gorm.io/hints"
)

// SessionStat is one study session joined with its deck name
type SessionStat struct {
	ID                 string    `json:"id"`
	DeckID             string    `json:"deckId"`
	DeckName           string    `json:"deckName"`
	CorrectCount       int       `json:"correctCount"`
	IncorrectCount     int       `json:"incorrectCount"`
	TotalCards         int       `json:"totalCards"`
	AccuracyPercentage int       `json:"accuracyPercentage"`
	CompletedAt        time.Time `json:"completedAt"`
}

// UserStats is the aggregate view behind the statistics screen
type UserStats struct {
	TotalDecks      int64         `json:"totalDecks"`
	TotalCards      int64         `json:"totalCards"`
	DecksWithCards  int64         `json:"decksWithCards"`
	TotalSessions   int           `json:"totalSessions"`
	TotalCorrect    int           `json:"totalCorrect"`
	TotalIncorrect  int           `json:"totalIncorrect"`
	AverageAccuracy int           `json:"averageAccuracy"`
	Sessions        []SessionStat `json:"sessions"`
}

// sessionHistoryLimit bounds the per-user session list in stats output
const sessionHistoryLimit = 50

// GetUserStats computes deck/card totals and the recent session history
// for one user.
func GetUserStats(db *gorm.DB, userID string) (*UserStats, *types.ServiceError) {
	stats := &UserStats{Sessions: []SessionStat{}}

	if err := db.Model(&models.Deck{}).Where("user_id = ?", userID).
		Count(&stats.TotalDecks).Error; err != nil {
		log.Printf("Deck count failed for user %s: %v", userID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to compute statistics")
	}

	if err := db.Model(&models.Card{}).
		Joins("JOIN decks ON decks.id = cards.deck_id").
		Where("decks.user_id = ?", userID).
		Count(&stats.TotalCards).Error; err != nil {
		log.Printf("Card count failed for user %s: %v", userID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to compute statistics")
	}

	if err := db.Model(&models.Card{}).
		Joins("JOIN decks ON decks.id = cards.deck_id").
		Where("decks.user_id = ?", userID).
		Distinct("cards.deck_id").
		Count(&stats.DecksWithCards).Error; err != nil {
		log.Printf("Decks-with-cards count failed for user %s: %v", userID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to compute statistics")
	}

	var rows []SessionStat
	err := db.Model(&models.StudySession{}).
		Clauses(hints.CommentBefore("select", "user_stats")).
		Select("study_sessions.id, study_sessions.deck_id, decks.name AS deck_name, "+
			"study_sessions.correct_count, study_sessions.incorrect_count, "+
			"study_sessions.total_cards, study_sessions.accuracy_percentage, "+
			"study_sessions.completed_at").
		Joins("JOIN decks ON decks.id = study_sessions.deck_id").
		Where("study_sessions.user_id = ?", userID).
		Order("study_sessions.completed_at DESC").
		Limit(sessionHistoryLimit).
		Scan(&rows).Error
	if err != nil {
		log.Printf("Session history failed for user %s: %v", userID, err)
		return nil, types.NewServiceError(types.ErrOperationFailed, "Failed to compute statistics")
	}

	stats.Sessions = rows
	stats.TotalSessions = len(rows)

	var accuracySum int
	for _, s := range rows {
		stats.TotalCorrect += s.CorrectCount
		stats.TotalIncorrect += s.IncorrectCount
		accuracySum += s.AccuracyPercentage
	}
	if stats.TotalSessions > 0 {
		stats.AverageAccuracy = int(math.Round(float64(accuracySum) / float64(stats.TotalSessions)))
	}

	return stats, nil
}
