package models

import (
	"fmt"
	"strings"
	"time"
)

// DifficultyLevel classifies how hard a flashcard is to answer.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// ParseDifficulty maps a raw string onto the difficulty enumeration.
// Unrecognized or missing values default to Medium so a malformed field
// never discards an otherwise usable card.
func ParseDifficulty(raw string) DifficultyLevel {
	switch strings.TrimSpace(raw) {
	case string(DifficultyEasy):
		return DifficultyEasy
	case string(DifficultyHard):
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}

// Subject is a fixed set of subject categories.
type Subject string

const (
	SubjectBiology         Subject = "Biology"
	SubjectChemistry       Subject = "Chemistry"
	SubjectPhysics         Subject = "Physics"
	SubjectMathematics     Subject = "Mathematics"
	SubjectComputerScience Subject = "Computer Science"
	SubjectHistory         Subject = "History"
	SubjectLiterature      Subject = "Literature"
	SubjectGeography       Subject = "Geography"
	SubjectEconomics       Subject = "Economics"
	SubjectPsychology      Subject = "Psychology"
	SubjectOther           Subject = "Other"
)

var subjects = []Subject{
	SubjectBiology, SubjectChemistry, SubjectPhysics, SubjectMathematics,
	SubjectComputerScience, SubjectHistory, SubjectLiterature,
	SubjectGeography, SubjectEconomics, SubjectPsychology, SubjectOther,
}

// ParseSubject maps a raw string onto the subject enumeration.
// Anything unrecognized reports false with an empty subject.
func ParseSubject(raw string) (Subject, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, s := range subjects {
		if strings.EqualFold(trimmed, string(s)) {
			return s, true
		}
	}
	return "", false
}

// Language names the language a flashcard is written in.
type Language string

const (
	LanguageEnglish  Language = "English"
	LanguageSpanish  Language = "Spanish"
	LanguageFrench   Language = "French"
	LanguageGerman   Language = "German"
	LanguageChinese  Language = "Chinese"
	LanguageJapanese Language = "Japanese"
)

var languages = []Language{
	LanguageEnglish, LanguageSpanish, LanguageFrench,
	LanguageGerman, LanguageChinese, LanguageJapanese,
}

// ParseLanguage maps a raw string onto the language enumeration,
// defaulting to English for unrecognized input.
func ParseLanguage(raw string) Language {
	trimmed := strings.TrimSpace(raw)
	for _, l := range languages {
		if strings.EqualFold(trimmed, string(l)) {
			return l
		}
	}
	return LanguageEnglish
}

// ExportFormat selects a serialization target for a flashcard set.
type ExportFormat string

const (
	ExportCSV     ExportFormat = "csv"
	ExportJSON    ExportFormat = "json"
	ExportAnki    ExportFormat = "anki"
	ExportQuizlet ExportFormat = "quizlet"
)

// ParseExportFormat maps a raw string onto the export format enumeration.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ExportCSV):
		return ExportCSV, nil
	case string(ExportJSON):
		return ExportJSON, nil
	case string(ExportAnki):
		return ExportAnki, nil
	case string(ExportQuizlet):
		return ExportQuizlet, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// Flashcard is a single question/answer unit.
type Flashcard struct {
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Difficulty DifficultyLevel `json:"difficulty"`
	Topic      string          `json:"topic,omitempty"`
	Subject    Subject         `json:"subject,omitempty"`
	Language   Language        `json:"language"`
}

// CardInput is the raw key-value shape recovered from a provider response
// before validation. Topic is a pointer so an absent field can be told apart
// from an empty one.
type CardInput struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Difficulty string  `json:"difficulty"`
	Topic      *string `json:"topic"`
}

// FieldError records why a single field was rejected during card construction.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError aggregates the rejected fields for one card. Callers in a
// batch context skip the card; single-card callers may surface it.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "invalid flashcard: " + strings.Join(parts, "; ")
}

// NewFlashcard validates raw card data into a Flashcard. Question and answer
// must be non-blank after trimming; difficulty silently defaults to Medium;
// a missing topic defaults to "General". Cards are created in English and
// only translation rewrites the language.
func NewFlashcard(in CardInput) (Flashcard, error) {
	verr := &ValidationError{}

	question := strings.TrimSpace(in.Question)
	if question == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: "question", Reason: "must not be blank"})
	}
	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		verr.Fields = append(verr.Fields, FieldError{Field: "answer", Reason: "must not be blank"})
	}
	if len(verr.Fields) > 0 {
		return Flashcard{}, verr
	}

	topic := "General"
	if in.Topic != nil {
		topic = *in.Topic
	}

	return Flashcard{
		Question:   question,
		Answer:     answer,
		Difficulty: ParseDifficulty(in.Difficulty),
		Topic:      topic,
		Language:   LanguageEnglish,
	}, nil
}

// TopicMap maps a topic name to the indices of the flashcards that belong to
// it in a parallel flashcard list. Every index must stay below the length of
// that list; reconciliation repairs the map after truncation.
type TopicMap map[string][]int

// GenerationRequest carries the inputs for one generation round trip.
type GenerationRequest struct {
	Content           string   `json:"content"`
	Subject           Subject  `json:"subject,omitempty"`
	Language          Language `json:"language"`
	NumCards          int      `json:"numCards"`
	IncludeDifficulty bool     `json:"includeDifficulty"`
	IncludeTopics     bool     `json:"includeTopics"`
}

const (
	MinCards     = 5
	MaxCards     = 50
	DefaultCards = 15
)

// Normalize clamps the card count into [MinCards, MaxCards], defaulting when
// unset, and fills in the default language.
func (r *GenerationRequest) Normalize() {
	if r.NumCards == 0 {
		r.NumCards = DefaultCards
	}
	if r.NumCards < MinCards {
		r.NumCards = MinCards
	}
	if r.NumCards > MaxCards {
		r.NumCards = MaxCards
	}
	if r.Language == "" {
		r.Language = LanguageEnglish
	}
}

// GenerationResult packages the outcome of one generation invocation. When
// Success is false the flashcard list and topic map are always empty and
// ErrorMessage is populated.
type GenerationResult struct {
	Success        bool        `json:"success"`
	Flashcards     []Flashcard `json:"flashcards"`
	Topics         TopicMap    `json:"topics"`
	ErrorMessage   string      `json:"errorMessage,omitempty"`
	ProcessingTime float64     `json:"processingTime,omitempty"`
}

// Failure builds a failed result carrying only the error description.
func Failure(message string) GenerationResult {
	return GenerationResult{
		Success:      false,
		Flashcards:   []Flashcard{},
		Topics:       TopicMap{},
		ErrorMessage: message,
	}
}

// FlashcardSet is a named collection of flashcards.
type FlashcardSet struct {
	ID          int64       `json:"id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Subject     Subject     `json:"subject,omitempty"`
	Language    Language    `json:"language"`
	Flashcards  []Flashcard `json:"flashcards"`
	CreatedAt   time.Time   `json:"createdAt,omitempty"`
}

// TopicDetail describes one detected topic in analyzed content.
type TopicDetail struct {
	Description string   `json:"description"`
	Subtopics   []string `json:"subtopics"`
	KeyConcepts []string `json:"key_concepts"`
}

// TopicAnalysis is the structured outcome of content topic detection.
type TopicAnalysis struct {
	Topics         map[string]TopicDetail `json:"topics"`
	ContentSummary string                 `json:"content_summary"`
}
