package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"cardforge/internal/db"
	"cardforge/internal/models"
)

func newTestSetService(t *testing.T) *SetService {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewSetService(conn)
}

func biologySet() models.FlashcardSet {
	return models.FlashcardSet{
		Title:    "Biology",
		Subject:  models.SubjectBiology,
		Language: models.LanguageEnglish,
		Flashcards: []models.Flashcard{
			{Question: "What is a cell?", Answer: "The basic unit of life.", Difficulty: models.DifficultyEasy, Topic: "Cells", Language: models.LanguageEnglish},
			{Question: "What is DNA?", Answer: "Genetic material.", Difficulty: models.DifficultyMedium, Topic: "Genetics", Language: models.LanguageEnglish},
			{Question: "What is RNA?", Answer: "A messenger molecule.", Difficulty: models.DifficultyMedium, Topic: "Genetics", Language: models.LanguageEnglish},
		},
	}
}

func TestSaveAndGetSet(t *testing.T) {
	svc := newTestSetService(t)
	ctx := context.Background()

	id, err := svc.SaveSet(ctx, biologySet())
	if err != nil {
		t.Fatalf("save set: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a non-zero set id")
	}

	set, topics, err := svc.GetSet(ctx, id)
	if err != nil {
		t.Fatalf("get set: %v", err)
	}
	if set.Title != "Biology" {
		t.Errorf("title = %q", set.Title)
	}
	if len(set.Flashcards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(set.Flashcards))
	}
	// Saved order must survive the round trip.
	if set.Flashcards[0].Question != "What is a cell?" {
		t.Errorf("first card = %q", set.Flashcards[0].Question)
	}
	if got := topics["Genetics"]; len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Genetics indices = %v", got)
	}
	if got := topics["Cells"]; len(got) != 1 || got[0] != 0 {
		t.Errorf("Cells indices = %v", got)
	}
}

func TestSaveSetRejectsEmpty(t *testing.T) {
	svc := newTestSetService(t)
	if _, err := svc.SaveSet(context.Background(), models.FlashcardSet{Title: "Empty"}); err == nil {
		t.Error("expected error for empty set")
	}
}

func TestListSets(t *testing.T) {
	svc := newTestSetService(t)
	ctx := context.Background()

	if _, err := svc.SaveSet(ctx, biologySet()); err != nil {
		t.Fatalf("save set: %v", err)
	}

	summaries, err := svc.ListSets(ctx)
	if err != nil {
		t.Fatalf("list sets: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	if summaries[0].CardCount != 3 {
		t.Errorf("card count = %d", summaries[0].CardCount)
	}
	if summaries[0].Subject != models.SubjectBiology {
		t.Errorf("subject = %q", summaries[0].Subject)
	}
}

func TestGetSetNotFound(t *testing.T) {
	svc := newTestSetService(t)
	if _, _, err := svc.GetSet(context.Background(), 999); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("err = %v, want ErrSetNotFound", err)
	}
}

func TestDeleteSet(t *testing.T) {
	svc := newTestSetService(t)
	ctx := context.Background()

	id, err := svc.SaveSet(ctx, biologySet())
	if err != nil {
		t.Fatalf("save set: %v", err)
	}
	if err := svc.DeleteSet(ctx, id); err != nil {
		t.Fatalf("delete set: %v", err)
	}
	if _, _, err := svc.GetSet(ctx, id); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("err = %v, want ErrSetNotFound after delete", err)
	}
	if err := svc.DeleteSet(ctx, id); !errors.Is(err, ErrSetNotFound) {
		t.Errorf("second delete err = %v, want ErrSetNotFound", err)
	}
}

func TestNextCardAndReview(t *testing.T) {
	svc := newTestSetService(t)
	ctx := context.Background()

	id, err := svc.SaveSet(ctx, biologySet())
	if err != nil {
		t.Fatalf("save set: %v", err)
	}

	// Fresh cards are due immediately; the earliest-due card surfaces first.
	card, err := svc.NextCard(ctx, id)
	if err != nil {
		t.Fatalf("next card: %v", err)
	}
	if card.Question != "What is a cell?" {
		t.Errorf("next card = %q", card.Question)
	}
	if card.Reps != 0 {
		t.Errorf("fresh card reps = %d", card.Reps)
	}

	reviewed, logEntry, err := svc.ReviewCard(ctx, card.ID, fsrs.Good)
	if err != nil {
		t.Fatalf("review card: %v", err)
	}
	if reviewed.Reps != 1 {
		t.Errorf("reps after review = %d", reviewed.Reps)
	}
	if !reviewed.LastReview.Valid {
		t.Error("last review timestamp not set")
	}
	if !reviewed.Due.Valid || !reviewed.Due.Time.After(card.CreatedAt) {
		t.Error("reviewed card should be rescheduled into the future")
	}
	if logEntry.Rating != int(fsrs.Good) {
		t.Errorf("log rating = %d", logEntry.Rating)
	}
	if logEntry.CardID != card.ID {
		t.Errorf("log card id = %d", logEntry.CardID)
	}

	// The reviewed card moved out; the next due card is a different one.
	next, err := svc.NextCard(ctx, id)
	if err != nil {
		t.Fatalf("next card after review: %v", err)
	}
	if next.ID == card.ID {
		t.Error("reviewed card surfaced again immediately")
	}
}

func TestNextCardNoDue(t *testing.T) {
	svc := newTestSetService(t)
	ctx := context.Background()

	id, err := svc.SaveSet(ctx, biologySet())
	if err != nil {
		t.Fatalf("save set: %v", err)
	}
	for i := 0; i < 3; i++ {
		card, err := svc.NextCard(ctx, id)
		if err != nil {
			t.Fatalf("next card %d: %v", i, err)
		}
		if _, _, err := svc.ReviewCard(ctx, card.ID, fsrs.Easy); err != nil {
			t.Fatalf("review card %d: %v", i, err)
		}
	}

	if _, err := svc.NextCard(ctx, id); !errors.Is(err, ErrNoDueCards) {
		t.Errorf("err = %v, want ErrNoDueCards", err)
	}
}
