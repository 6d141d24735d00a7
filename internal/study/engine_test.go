package study_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/studydeck/studydeck/internal/models"
	"github.com/studydeck/studydeck/internal/study"
)

// fakeRecorder captures completion results for assertions
type fakeRecorder struct {
	results []study.Result
	err     error
}

func (r *fakeRecorder) RecordResult(result study.Result) error {
	r.results = append(r.results, result)
	return r.err
}

func makeCards(n int) []models.Card {
	cards := make([]models.Card, n)
	for i := range cards {
		cards[i] = models.Card{
			ID:     fmt.Sprintf("card-%d", i),
			DeckID: "deck-1",
			Front:  fmt.Sprintf("front-%d", i),
			Back:   fmt.Sprintf("back-%d", i),
		}
	}
	return cards
}

// grade reveals and grades the current card
func grade(t *testing.T, s *study.Session, outcome study.Outcome) error {
	t.Helper()
	s.Reveal()
	return s.RecordOutcome(outcome)
}

func TestNewSessionEmptyDeck(t *testing.T) {
	_, err := study.NewSession("deck-1", nil, nil)
	if !errors.Is(err, study.ErrEmptyDeck) {
		t.Fatalf("Expected ErrEmptyDeck, got %v", err)
	}
}

func TestPrematureAnswerLeavesStateUnchanged(t *testing.T) {
	s, err := study.NewSession("deck-1", makeCards(3), nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := s.RecordOutcome(study.OutcomeCorrect); !errors.Is(err, study.ErrPrematureAnswer) {
		t.Fatalf("Expected ErrPrematureAnswer, got %v", err)
	}

	if s.Index() != 0 {
		t.Errorf("Expected cursor to stay at 0, got %d", s.Index())
	}
	if s.OutcomeFor("card-0") != study.OutcomeUnset {
		t.Error("Expected no outcome recorded after premature answer")
	}

	// Reveal unblocks grading on the same card
	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade after reveal: %v", err)
	}
	if s.Index() != 1 {
		t.Errorf("Expected cursor at 1 after grading, got %d", s.Index())
	}
	if s.IsRevealed() {
		t.Error("Expected next card to start hidden")
	}
}

func TestGradingLastCardCompletesAndRecordsOnce(t *testing.T) {
	recorder := &fakeRecorder{}
	s, err := study.NewSession("deck-1", makeCards(3), recorder)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade card 0: %v", err)
	}
	if err := grade(t, s, study.OutcomeIncorrect); err != nil {
		t.Fatalf("Failed to grade card 1: %v", err)
	}
	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade card 2: %v", err)
	}

	if !s.IsComplete() {
		t.Fatal("Expected session to be complete")
	}

	if len(recorder.results) != 1 {
		t.Fatalf("Expected exactly one recorder call, got %d", len(recorder.results))
	}

	got := recorder.results[0]
	want := study.Tally{CorrectCount: 2, IncorrectCount: 1, TotalCards: 3, AccuracyPercentage: 67}
	if got.DeckID != "deck-1" || got.Tally != want {
		t.Errorf("Recorded result %+v, want deck-1 %+v", got, want)
	}

	// Grading past completion is rejected and does not re-record
	if err := s.RecordOutcome(study.OutcomeCorrect); !errors.Is(err, study.ErrSessionComplete) {
		t.Errorf("Expected ErrSessionComplete, got %v", err)
	}
	if len(recorder.results) != 1 {
		t.Errorf("Expected recorder to stay at one call, got %d", len(recorder.results))
	}
}

func TestSkippingLastCardCompletesUngraded(t *testing.T) {
	recorder := &fakeRecorder{}
	s, err := study.NewSession("deck-1", makeCards(2), recorder)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade card 0: %v", err)
	}
	if err := s.GoToNext(); err != nil {
		t.Fatalf("Failed to skip last card: %v", err)
	}

	if !s.IsComplete() {
		t.Fatal("Expected session to be complete after skipping last card")
	}
	if len(recorder.results) != 1 {
		t.Fatalf("Expected exactly one recorder call, got %d", len(recorder.results))
	}

	// The skipped card counts toward the total but neither tally
	got := recorder.results[0].Tally
	want := study.Tally{CorrectCount: 1, IncorrectCount: 0, TotalCards: 2, AccuracyPercentage: 50}
	if got != want {
		t.Errorf("Recorded tally %+v, want %+v", got, want)
	}
}

func TestAccuracyRounding(t *testing.T) {
	cases := []struct {
		name     string
		outcomes []study.Outcome
		want     int
	}{
		{"none correct", []study.Outcome{study.OutcomeIncorrect, study.OutcomeIncorrect, study.OutcomeIncorrect}, 0},
		{"one of three", []study.Outcome{study.OutcomeCorrect, study.OutcomeIncorrect, study.OutcomeIncorrect}, 33},
		{"two of three", []study.Outcome{study.OutcomeCorrect, study.OutcomeCorrect, study.OutcomeIncorrect}, 67},
		{"all correct", []study.Outcome{study.OutcomeCorrect, study.OutcomeCorrect, study.OutcomeCorrect}, 100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := study.NewSession("deck-1", makeCards(len(tc.outcomes)), nil)
			if err != nil {
				t.Fatalf("Failed to create session: %v", err)
			}
			for _, o := range tc.outcomes {
				if err := grade(t, s, o); err != nil {
					t.Fatalf("Failed to grade: %v", err)
				}
			}
			if got := s.Tally().AccuracyPercentage; got != tc.want {
				t.Errorf("Accuracy %d, want %d", got, tc.want)
			}
		})
	}
}

func TestShuffleKeepsCardSetAndResetsProgress(t *testing.T) {
	cards := makeCards(10)
	s, err := study.NewSessionWithRand("deck-1", cards, nil, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}
	s.Reveal()

	if err := s.Shuffle(); err != nil {
		t.Fatalf("Failed to shuffle: %v", err)
	}

	// Same identity set, different arrangement
	before := make(map[string]bool, len(cards))
	for _, c := range cards {
		before[c.ID] = true
	}
	after := s.Cards()
	if len(after) != len(cards) {
		t.Fatalf("Shuffle changed card count: %d != %d", len(after), len(cards))
	}
	moved := false
	for i, c := range after {
		if !before[c.ID] {
			t.Fatalf("Shuffle introduced unknown card %s", c.ID)
		}
		if c.ID != cards[i].ID {
			moved = true
		}
	}
	if !moved {
		t.Error("Expected shuffle with this seed to move at least one card")
	}

	// Fresh generation: cursor, reveal and outcomes reset
	if s.Index() != 0 {
		t.Errorf("Expected cursor reset to 0, got %d", s.Index())
	}
	if s.IsRevealed() {
		t.Error("Expected card hidden after shuffle")
	}
	if s.OutcomeFor("card-0") != study.OutcomeUnset {
		t.Error("Expected outcomes cleared after shuffle")
	}
}

func TestShuffleRejectedWhenComplete(t *testing.T) {
	s, err := study.NewSession("deck-1", makeCards(1), nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}

	if err := s.Shuffle(); !errors.Is(err, study.ErrSessionComplete) {
		t.Errorf("Expected ErrSessionComplete, got %v", err)
	}
}

func TestRestartBeginsNewGeneration(t *testing.T) {
	recorder := &fakeRecorder{}
	s, err := study.NewSession("deck-1", makeCards(2), recorder)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}
	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}
	if len(recorder.results) != 1 {
		t.Fatalf("Expected one recorder call, got %d", len(recorder.results))
	}

	order := s.Cards()
	s.Restart()

	if s.IsComplete() || s.Index() != 0 {
		t.Fatal("Expected restart to return to the beginning")
	}
	if s.OutcomeFor("card-0") != study.OutcomeUnset {
		t.Error("Expected outcomes cleared on restart")
	}
	for i, c := range s.Cards() {
		if c.ID != order[i].ID {
			t.Fatal("Expected restart to preserve card order")
		}
	}

	// Completing the new generation records again
	if err := grade(t, s, study.OutcomeIncorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}
	if err := grade(t, s, study.OutcomeIncorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}
	if len(recorder.results) != 2 {
		t.Errorf("Expected a second recorder call after restart, got %d", len(recorder.results))
	}
}

func TestRecorderFailureKeepsCompletion(t *testing.T) {
	recorder := &fakeRecorder{err: errors.New("datastore down")}
	s, err := study.NewSession("deck-1", makeCards(1), recorder)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	err = grade(t, s, study.OutcomeCorrect)
	var rerr *study.RecorderError
	if !errors.As(err, &rerr) {
		t.Fatalf("Expected RecorderError, got %v", err)
	}

	if !s.IsComplete() {
		t.Error("Expected session to remain complete after recorder failure")
	}
	if len(recorder.results) != 1 {
		t.Errorf("Expected one recorder attempt, got %d", len(recorder.results))
	}

	// No retry from the terminal state
	if err := s.GoToNext(); !errors.Is(err, study.ErrSessionComplete) {
		t.Errorf("Expected ErrSessionComplete, got %v", err)
	}
	if len(recorder.results) != 1 {
		t.Errorf("Expected no recorder retry, got %d calls", len(recorder.results))
	}
}

func TestNavigationAndReveal(t *testing.T) {
	s, err := study.NewSession("deck-1", makeCards(3), nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// Previous at the first card is a no-op
	s.GoToPrevious()
	if s.Index() != 0 {
		t.Errorf("Expected cursor to stay at 0, got %d", s.Index())
	}

	if err := grade(t, s, study.OutcomeCorrect); err != nil {
		t.Fatalf("Failed to grade: %v", err)
	}

	// Going back keeps the outcome of the graded card
	s.GoToPrevious()
	if s.Index() != 0 {
		t.Errorf("Expected cursor back at 0, got %d", s.Index())
	}
	if s.OutcomeFor("card-0") != study.OutcomeCorrect {
		t.Error("Expected outcome kept when navigating back")
	}

	// Hide on a hidden card is a no-op
	s.Hide()
	if s.IsRevealed() {
		t.Error("Expected card to stay hidden")
	}
	s.Reveal()
	s.Reveal()
	if !s.IsRevealed() {
		t.Error("Expected card revealed")
	}
}

func TestProgress(t *testing.T) {
	s, err := study.NewSession("deck-1", makeCards(4), nil)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if got := s.Progress(); got != 0.25 {
		t.Errorf("Expected progress 0.25 on the first card, got %v", got)
	}
	if err := s.GoToNext(); err != nil {
		t.Fatalf("Failed to advance: %v", err)
	}
	if got := s.Progress(); got != 0.5 {
		t.Errorf("Expected progress 0.5 on the second card, got %v", got)
	}
}
