package study

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/studydeck/studydeck/internal/models"
)

// Outcome is the per-card grading result, assigned only after the
// answer side has been revealed.
type Outcome int

const (
	OutcomeUnset Outcome = iota
	OutcomeCorrect
	OutcomeIncorrect
)

var (
	// ErrEmptyDeck is returned when a session is started with no cards.
	ErrEmptyDeck = errors.New("cannot study an empty deck")
	// ErrPrematureAnswer is returned when an outcome is recorded before
	// the answer has been revealed.
	ErrPrematureAnswer = errors.New("answer must be revealed before grading")
	// ErrSessionComplete is returned by operations that require an
	// in-progress session.
	ErrSessionComplete = errors.New("study session is already complete")
)

// RecorderError wraps a recorder failure surfaced from the completion
// transition. The session is complete regardless; callers should treat
// this as a warning and must not retry through the engine.
type RecorderError struct {
	Err error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("session completed but result was not recorded: %v", e.Err)
}

func (e *RecorderError) Unwrap() error { return e.Err }

// Tally holds the aggregate counts for one sitting. Cards without an
// outcome count toward TotalCards only.
type Tally struct {
	CorrectCount       int `json:"correctCount"`
	IncorrectCount     int `json:"incorrectCount"`
	TotalCards         int `json:"totalCards"`
	AccuracyPercentage int `json:"accuracyPercentage"`
}

// Result is what the engine hands to the recorder when a sitting
// completes.
type Result struct {
	DeckID string
	Tally
}

// Recorder persists one completed sitting's result. The engine calls it
// exactly once per generation, on the transition into the complete state.
type Recorder interface {
	RecordResult(result Result) error
}

// Session runs one interactive study sitting over a fixed set of cards.
// It is single-threaded and UI-driven: one user, one instance, no
// internal locking. Create one per sitting and discard it on navigation
// away.
type Session struct {
	deckID   string
	cards    []models.Card
	index    int
	revealed bool
	complete bool
	outcomes map[string]Outcome
	recorder Recorder
	rng      *rand.Rand

	// recorded guards the exactly-once completion trigger for the
	// current generation; Restart and Shuffle begin a new generation.
	recorded bool
}

// NewSession starts a sitting over cards in their given order.
// Fails with ErrEmptyDeck when cards is empty.
func NewSession(deckID string, cards []models.Card, recorder Recorder) (*Session, error) {
	return NewSessionWithRand(deckID, cards, recorder,
		rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSessionWithRand is NewSession with an injectable shuffle source.
func NewSessionWithRand(deckID string, cards []models.Card, recorder Recorder, rng *rand.Rand) (*Session, error) {
	if len(cards) == 0 {
		return nil, ErrEmptyDeck
	}

	ordered := make([]models.Card, len(cards))
	copy(ordered, cards)

	s := &Session{
		deckID:   deckID,
		cards:    ordered,
		outcomes: make(map[string]Outcome, len(ordered)),
		recorder: recorder,
		rng:      rng,
	}
	for _, c := range ordered {
		s.outcomes[c.ID] = OutcomeUnset
	}

	return s, nil
}

// Shuffle re-randomizes the card order with a uniform Fisher-Yates
// permutation and begins a fresh generation: index, reveal state and all
// outcomes are cleared. Not allowed once the sitting is complete.
func (s *Session) Shuffle() error {
	if s.complete {
		return ErrSessionComplete
	}

	for i := len(s.cards) - 1; i > 0; i-- {
		j := s.rng.Intn(i + 1)
		s.cards[i], s.cards[j] = s.cards[j], s.cards[i]
	}

	s.index = 0
	s.revealed = false
	s.recorded = false
	s.clearOutcomes()

	return nil
}

// Reveal shows the answer side of the current card. Presentation state
// only; no effect on outcomes.
func (s *Session) Reveal() {
	if s.complete {
		return
	}
	s.revealed = true
}

// Hide flips the current card back to its question side. A no-op when
// already hidden.
func (s *Session) Hide() {
	if s.complete {
		return
	}
	s.revealed = false
}

// RecordOutcome grades the current card and advances. The answer must be
// revealed first (ErrPrematureAnswer otherwise; state unchanged). Grading
// the last card completes the sitting and triggers the one recorder call
// for this generation; a recorder failure comes back as *RecorderError
// with the session still complete.
func (s *Session) RecordOutcome(outcome Outcome) error {
	if s.complete {
		return ErrSessionComplete
	}
	if !s.revealed {
		return ErrPrematureAnswer
	}
	if outcome != OutcomeCorrect && outcome != OutcomeIncorrect {
		return fmt.Errorf("invalid outcome %d", outcome)
	}

	s.outcomes[s.cards[s.index].ID] = outcome

	if s.index == len(s.cards)-1 {
		return s.finish()
	}

	s.index++
	s.revealed = false
	return nil
}

// GoToNext skips the current card without grading it. On the last card
// this flows into the same completion path as RecordOutcome, leaving the
// card ungraded.
func (s *Session) GoToNext() error {
	if s.complete {
		return ErrSessionComplete
	}

	if s.index == len(s.cards)-1 {
		return s.finish()
	}

	s.index++
	s.revealed = false
	return nil
}

// GoToPrevious steps back one card, keeping the outcome recorded for the
// card being left. A no-op at index 0.
func (s *Session) GoToPrevious() {
	if s.complete || s.index == 0 {
		return
	}
	s.index--
	s.revealed = false
}

// Restart returns the sitting to the beginning under a fresh generation,
// preserving the current card order. The completion trigger may fire
// again when the new generation completes.
func (s *Session) Restart() {
	s.index = 0
	s.revealed = false
	s.complete = false
	s.recorded = false
	s.clearOutcomes()
}

// Progress reports (index+1)/len as a fraction in (0, 1].
func (s *Session) Progress() float64 {
	return float64(s.index+1) / float64(len(s.cards))
}

// Tally computes the aggregate counts at this instant.
func (s *Session) Tally() Tally {
	var correct, incorrect int
	for _, o := range s.outcomes {
		switch o {
		case OutcomeCorrect:
			correct++
		case OutcomeIncorrect:
			incorrect++
		}
	}

	total := len(s.cards)
	return Tally{
		CorrectCount:       correct,
		IncorrectCount:     incorrect,
		TotalCards:         total,
		AccuracyPercentage: int(math.Round(float64(correct) / float64(total) * 100)),
	}
}

// Current returns the card at the cursor.
func (s *Session) Current() models.Card {
	return s.cards[s.index]
}

// Cards returns the current ordering.
func (s *Session) Cards() []models.Card {
	out := make([]models.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// OutcomeFor reports the recorded outcome for a card id.
func (s *Session) OutcomeFor(cardID string) Outcome {
	return s.outcomes[cardID]
}

// Index returns the zero-based cursor position.
func (s *Session) Index() int { return s.index }

// Size returns the number of cards in the sitting.
func (s *Session) Size() int { return len(s.cards) }

// IsRevealed reports whether the answer side is showing.
func (s *Session) IsRevealed() bool { return s.revealed }

// IsComplete reports whether the sitting has reached its terminal state.
func (s *Session) IsComplete() bool { return s.complete }

// DeckID returns the deck this sitting was started from.
func (s *Session) DeckID() string { return s.deckID }

func (s *Session) clearOutcomes() {
	for id := range s.outcomes {
		s.outcomes[id] = OutcomeUnset
	}
}

// finish transitions into the complete state and fires the recorder
// exactly once for this generation. The recorder call is not retried and
// its failure does not roll back completion.
func (s *Session) finish() error {
	s.complete = true
	s.revealed = false

	if s.recorded || s.recorder == nil {
		return nil
	}
	s.recorded = true

	if err := s.recorder.RecordResult(Result{DeckID: s.deckID, Tally: s.Tally()}); err != nil {
		return &RecorderError{Err: err}
	}
	return nil
}
