package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"cardforge/internal/models"
)

// ExportService serializes flashcard sets for external study tools.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// Export serializes a set in the requested format and returns the content
// together with a generated filename.
func (s *ExportService) Export(set models.FlashcardSet, format models.ExportFormat) (string, string, error) {
	if err := s.Validate(set); err != nil {
		return "", "", err
	}

	var content string
	var err error
	switch format {
	case models.ExportCSV:
		content, err = s.toCSV(set)
	case models.ExportJSON:
		content, err = s.toJSON(set)
	case models.ExportAnki:
		content, err = s.toAnki(set)
	case models.ExportQuizlet:
		content, err = s.toQuizlet(set)
	default:
		return "", "", fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return "", "", err
	}

	return content, s.Filename(set, format), nil
}

// Validate rejects sets that would produce broken exports: empty sets or
// cards with blank questions or answers.
func (s *ExportService) Validate(set models.FlashcardSet) error {
	if len(set.Flashcards) == 0 {
		return fmt.Errorf("no flashcards to export")
	}
	for i, card := range set.Flashcards {
		if strings.TrimSpace(card.Question) == "" {
			return fmt.Errorf("flashcard %d has an empty question", i+1)
		}
		if strings.TrimSpace(card.Answer) == "" {
			return fmt.Errorf("flashcard %d has an empty answer", i+1)
		}
	}
	return nil
}

func (s *ExportService) toCSV(set models.FlashcardSet) (string, error) {
	var out strings.Builder
	writer := csv.NewWriter(&out)

	if err := writer.Write([]string{"Question", "Answer", "Difficulty", "Topic", "Subject", "Language"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, card := range set.Flashcards {
		record := []string{
			card.Question,
			card.Answer,
			string(card.Difficulty),
			card.Topic,
			string(card.Subject),
			string(card.Language),
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}
	return out.String(), nil
}

func (s *ExportService) toJSON(set models.FlashcardSet) (string, error) {
	createdAt := set.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	payload := struct {
		Title       string             `json:"title"`
		Description string             `json:"description"`
		Subject     models.Subject     `json:"subject"`
		Language    models.Language    `json:"language"`
		CreatedAt   string             `json:"created_at"`
		Flashcards  []models.Flashcard `json:"flashcards"`
	}{
		Title:       set.Title,
		Description: set.Description,
		Subject:     set.Subject,
		Language:    set.Language,
		CreatedAt:   createdAt.Format(time.RFC3339),
		Flashcards:  set.Flashcards,
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal set: %w", err)
	}
	return string(data), nil
}

// toAnki emits the tab-separated Front/Back/Tags layout Anki imports, with
// difficulty, topic, and subject folded into tags.
func (s *ExportService) toAnki(set models.FlashcardSet) (string, error) {
	var out strings.Builder
	writer := csv.NewWriter(&out)
	writer.Comma = '\t'

	if err := writer.Write([]string{"Front", "Back", "Tags"}); err != nil {
		return "", fmt.Errorf("write anki header: %w", err)
	}
	for _, card := range set.Flashcards {
		var tags []string
		if card.Difficulty != "" {
			tags = append(tags, "difficulty:"+string(card.Difficulty))
		}
		if card.Topic != "" {
			tags = append(tags, "topic:"+card.Topic)
		}
		if card.Subject != "" {
			tags = append(tags, "subject:"+string(card.Subject))
		}
		if err := writer.Write([]string{card.Question, card.Answer, strings.Join(tags, " ")}); err != nil {
			return "", fmt.Errorf("write anki record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush anki export: %w", err)
	}
	return out.String(), nil
}

func (s *ExportService) toQuizlet(set models.FlashcardSet) (string, error) {
	var out strings.Builder
	writer := csv.NewWriter(&out)

	if err := writer.Write([]string{"Term", "Definition"}); err != nil {
		return "", fmt.Errorf("write quizlet header: %w", err)
	}
	for _, card := range set.Flashcards {
		if err := writer.Write([]string{card.Question, card.Answer}); err != nil {
			return "", fmt.Errorf("write quizlet record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("flush quizlet export: %w", err)
	}
	return out.String(), nil
}

var formatExtensions = map[models.ExportFormat]string{
	models.ExportCSV:     ".csv",
	models.ExportJSON:    ".json",
	models.ExportAnki:    ".csv",
	models.ExportQuizlet: ".csv",
}

// Filename builds a timestamped export filename from the set title, keeping
// only filesystem-safe characters.
func (s *ExportService) Filename(set models.FlashcardSet, format models.ExportFormat) string {
	title := strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(set.Title)
	var cleaned strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			cleaned.WriteRune(r)
		}
	}
	name := cleaned.String()
	if name == "" {
		name = "flashcards"
	}

	ext, ok := formatExtensions[format]
	if !ok {
		ext = ".txt"
	}
	return fmt.Sprintf("%s_%s%s", name, time.Now().Format("20060102_150405"), ext)
}

// SummaryReport renders a plain-text overview of a set with difficulty and
// topic distributions.
func (s *ExportService) SummaryReport(set models.FlashcardSet) string {
	total := len(set.Flashcards)

	difficultyCounts := map[models.DifficultyLevel]int{}
	topicCounts := map[string]int{}
	for _, card := range set.Flashcards {
		difficultyCounts[card.Difficulty]++
		topic := card.Topic
		if topic == "" {
			topic = "Uncategorized"
		}
		topicCounts[topic]++
	}

	description := set.Description
	if description == "" {
		description = "No description provided"
	}
	subject := string(set.Subject)
	if subject == "" {
		subject = "Not specified"
	}

	var report strings.Builder
	fmt.Fprintf(&report, "Flashcard Set Summary\n====================\n\n")
	fmt.Fprintf(&report, "Title: %s\n", set.Title)
	fmt.Fprintf(&report, "Description: %s\n", description)
	fmt.Fprintf(&report, "Subject: %s\n", subject)
	fmt.Fprintf(&report, "Language: %s\n\n", set.Language)
	fmt.Fprintf(&report, "Statistics:\n- Total Cards: %d\n\n", total)

	report.WriteString("Difficulty Distribution:\n")
	for _, level := range []models.DifficultyLevel{models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard} {
		if count := difficultyCounts[level]; count > 0 {
			fmt.Fprintf(&report, "- %s: %d cards (%.1f%%)\n", level, count, percentOf(count, total))
		}
	}

	report.WriteString("\nTopic Distribution:\n")
	topics := make([]string, 0, len(topicCounts))
	for topic := range topicCounts {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if topicCounts[topics[i]] != topicCounts[topics[j]] {
			return topicCounts[topics[i]] > topicCounts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	for _, topic := range topics {
		count := topicCounts[topic]
		fmt.Fprintf(&report, "- %s: %d cards (%.1f%%)\n", topic, count, percentOf(count, total))
	}

	return report.String()
}

func percentOf(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
