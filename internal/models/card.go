package models

import (
	"database/sql"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"
)

// StoredCard is a flashcard persisted within a saved set, carrying FSRS
// scheduling state. Level is the authored Easy/Medium/Hard rating; Difficulty
// is the FSRS memory-model difficulty and is unrelated.
type StoredCard struct {
	ID            int64
	SetID         int64
	Position      int
	Question      string
	Answer        string
	Level         DifficultyLevel
	Topic         string
	Language      Language
	Due           sql.NullTime
	Stability     float64
	Difficulty    float64
	ElapsedDays   int
	ScheduledDays int
	Reps          int
	Lapses        int
	State         int
	LastReview    sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ReviewLog records the outcome of one card review.
type ReviewLog struct {
	ID            int64
	CardID        int64
	Rating        int
	ScheduledDays int
	ElapsedDays   int
	State         int
	ReviewedAt    time.Time
}

func (c *StoredCard) ToFSRSCard() fsrs.Card {
	card := fsrs.Card{
		Stability:     c.Stability,
		Difficulty:    c.Difficulty,
		ElapsedDays:   uint64(clampNonNegative(c.ElapsedDays)),
		ScheduledDays: uint64(clampNonNegative(c.ScheduledDays)),
		Reps:          uint64(clampNonNegative(c.Reps)),
		Lapses:        uint64(clampNonNegative(c.Lapses)),
		State:         fsrs.State(clampNonNegative(c.State)),
	}
	if c.Due.Valid {
		card.Due = c.Due.Time
	}
	if c.LastReview.Valid {
		card.LastReview = c.LastReview.Time
	}
	return card
}

func (c *StoredCard) ApplyFSRSCard(f fsrs.Card) {
	c.Due = sql.NullTime{Time: f.Due, Valid: !f.Due.IsZero()}
	c.Stability = f.Stability
	c.Difficulty = f.Difficulty
	c.ElapsedDays = int(f.ElapsedDays)
	c.ScheduledDays = int(f.ScheduledDays)
	c.Reps = int(f.Reps)
	c.Lapses = int(f.Lapses)
	c.State = int(f.State)
	c.LastReview = sql.NullTime{Time: f.LastReview, Valid: !f.LastReview.IsZero()}
}

// Flashcard strips the scheduling state back down to the plain card shape.
func (c *StoredCard) Flashcard() Flashcard {
	return Flashcard{
		Question:   c.Question,
		Answer:     c.Answer,
		Difficulty: c.Level,
		Topic:      c.Topic,
		Language:   c.Language,
	}
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
