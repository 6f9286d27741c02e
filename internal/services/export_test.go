package services

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"cardforge/internal/models"
)

func exportSet() models.FlashcardSet {
	return models.FlashcardSet{
		Title:       "Cell Biology Basics",
		Description: "Introductory cards",
		Subject:     models.SubjectBiology,
		Language:    models.LanguageEnglish,
		CreatedAt:   time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Flashcards: []models.Flashcard{
			{Question: "What is a cell?", Answer: "The basic unit of life.", Difficulty: models.DifficultyEasy, Topic: "Cells", Subject: models.SubjectBiology, Language: models.LanguageEnglish},
			{Question: "What does the, nucleus do?", Answer: "Stores genetic material.", Difficulty: models.DifficultyMedium, Topic: "Organelles", Subject: models.SubjectBiology, Language: models.LanguageEnglish},
		},
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewExportService()
	content, filename, err := svc.Export(exportSet(), models.ExportCSV)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	wantHeader := []string{"Question", "Answer", "Difficulty", "Topic", "Subject", "Language"}
	for i, col := range wantHeader {
		if records[0][i] != col {
			t.Errorf("header[%d] = %q, want %q", i, records[0][i], col)
		}
	}
	// The comma inside the question must survive the round trip.
	if records[2][0] != "What does the, nucleus do?" {
		t.Errorf("question with comma mangled: %q", records[2][0])
	}
	if !strings.HasPrefix(filename, "Cell_Biology_Basics_") || !strings.HasSuffix(filename, ".csv") {
		t.Errorf("filename = %q", filename)
	}
}

func TestExportJSON(t *testing.T) {
	svc := NewExportService()
	content, filename, err := svc.Export(exportSet(), models.ExportJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var payload struct {
		Title      string             `json:"title"`
		CreatedAt  string             `json:"created_at"`
		Flashcards []models.Flashcard `json:"flashcards"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		t.Fatalf("output is not valid json: %v", err)
	}
	if payload.Title != "Cell Biology Basics" {
		t.Errorf("title = %q", payload.Title)
	}
	if payload.CreatedAt != "2026-03-14T09:30:00Z" {
		t.Errorf("created_at = %q", payload.CreatedAt)
	}
	if len(payload.Flashcards) != 2 {
		t.Errorf("expected 2 cards, got %d", len(payload.Flashcards))
	}
	if !strings.HasSuffix(filename, ".json") {
		t.Errorf("filename = %q", filename)
	}
}

func TestExportAnki(t *testing.T) {
	svc := NewExportService()
	content, _, err := svc.Export(exportSet(), models.ExportAnki)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.Comma = '\t'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("output is not valid tsv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(records))
	}
	if records[0][0] != "Front" || records[0][1] != "Back" || records[0][2] != "Tags" {
		t.Errorf("header = %v", records[0])
	}
	tags := records[1][2]
	for _, want := range []string{"difficulty:Easy", "topic:Cells", "subject:Biology"} {
		if !strings.Contains(tags, want) {
			t.Errorf("tags %q missing %q", tags, want)
		}
	}
}

func TestExportQuizlet(t *testing.T) {
	svc := NewExportService()
	content, _, err := svc.Export(exportSet(), models.ExportQuizlet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if records[0][0] != "Term" || records[0][1] != "Definition" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][0] != "What is a cell?" {
		t.Errorf("first term = %q", records[1][0])
	}
}

func TestExportValidation(t *testing.T) {
	svc := NewExportService()

	t.Run("EmptySet", func(t *testing.T) {
		_, _, err := svc.Export(models.FlashcardSet{Title: "Empty"}, models.ExportCSV)
		if err == nil {
			t.Error("expected error for empty set")
		}
	})

	t.Run("BlankAnswer", func(t *testing.T) {
		set := models.FlashcardSet{
			Title:      "Broken",
			Flashcards: []models.Flashcard{{Question: "Q?", Answer: "   "}},
		}
		_, _, err := svc.Export(set, models.ExportCSV)
		if err == nil || !strings.Contains(err.Error(), "empty answer") {
			t.Errorf("err = %v", err)
		}
	})
}

func TestFilenameSanitization(t *testing.T) {
	svc := NewExportService()

	name := svc.Filename(models.FlashcardSet{Title: "My Set: a/b\\c!"}, models.ExportJSON)
	if strings.ContainsAny(name, " /\\:!") {
		t.Errorf("filename contains unsafe characters: %q", name)
	}
	if !strings.HasPrefix(name, "My_Set_a_b_c_") {
		t.Errorf("filename = %q", name)
	}

	name = svc.Filename(models.FlashcardSet{Title: "!!!"}, models.ExportCSV)
	if !strings.HasPrefix(name, "flashcards_") {
		t.Errorf("expected fallback name, got %q", name)
	}
}

func TestSummaryReport(t *testing.T) {
	svc := NewExportService()
	report := svc.SummaryReport(exportSet())

	for _, want := range []string{
		"Title: Cell Biology Basics",
		"Total Cards: 2",
		"- Easy: 1 cards (50.0%)",
		"- Medium: 1 cards (50.0%)",
		"- Cells: 1 cards (50.0%)",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}
	if strings.Contains(report, "Hard:") {
		t.Error("report should omit difficulties with zero cards")
	}
}
