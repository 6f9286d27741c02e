package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cardforge/internal/llm"
	"cardforge/internal/models"
	"cardforge/internal/parser"
	"cardforge/internal/prompts"
)

var (
	// ErrProviderUnavailable is returned when no LLM backend is configured.
	ErrProviderUnavailable = errors.New("llm provider is not configured")
)

const (
	systemCreator    = "You are an expert educational content creator."
	systemTranslator = "You are a professional translator."
	systemEditor     = "You are an expert educational content editor."
	systemAnalyst    = "You are an expert content analyst."

	msgNoContent  = "No content provided for flashcard generation."
	msgNoCards    = "No valid flashcards were generated. Please try again."
	msgDetectFail = "Topic detection failed"
)

// GeneratorService turns educational text into flashcards through a single
// provider round trip per invocation. Generation fails hard; translation and
// improvement fail soft, handing the caller back the untouched input.
type GeneratorService struct {
	provider llm.Provider
}

func NewGeneratorService(provider llm.Provider) *GeneratorService {
	return &GeneratorService{provider: provider}
}

// Generate runs the full pipeline: validate input, call the provider once,
// parse structured-first with a free-text fallback over the same response,
// truncate to the requested count, and reconcile the topic map. Provider and
// parse failures are converted into a failure result; no error escapes.
func (s *GeneratorService) Generate(ctx context.Context, req models.GenerationRequest) models.GenerationResult {
	start := time.Now()

	if strings.TrimSpace(req.Content) == "" {
		return models.Failure(msgNoContent)
	}
	if s.provider == nil {
		return models.Failure("Error generating flashcards: " + ErrProviderUnavailable.Error())
	}
	req.Normalize()

	var prompt string
	if req.Subject != "" && req.Subject != models.SubjectOther {
		prompt = prompts.SubjectSpecific(req.Subject, req.Language)
	} else {
		prompt = prompts.Base(req.Subject, req.Language)
	}

	raw, err := s.provider.Invoke(ctx, systemCreator, prompt+req.Content)
	if err != nil {
		return models.Failure("Error generating flashcards: " + err.Error())
	}

	result := s.parseResponse(raw)
	if len(result.Flashcards) == 0 {
		return models.Failure(msgNoCards)
	}

	cards := result.Flashcards
	if len(cards) > req.NumCards {
		cards = cards[:req.NumCards]
	}
	topics := parser.ReconcileTopics(result.Topics, len(cards))

	return models.GenerationResult{
		Success:        true,
		Flashcards:     cards,
		Topics:         topics,
		ProcessingTime: time.Since(start).Seconds(),
	}
}

// parseResponse is the fallback chain shared by all flows: structured first,
// free text on the same raw response when the structured pass fails.
func (s *GeneratorService) parseResponse(raw string) parser.Result {
	if result, ok := parser.ParseStructured(raw); ok {
		return result
	}
	return parser.ParseFreeText(raw)
}

// compactCard is the record shape serialized into translation and improvement
// prompts.
type compactCard struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
}

func serializeCards(cards []models.Flashcard) (string, error) {
	records := make([]compactCard, 0, len(cards))
	for _, card := range cards {
		records = append(records, compactCard{
			Question:   card.Question,
			Answer:     card.Answer,
			Difficulty: string(card.Difficulty),
			Topic:      card.Topic,
		})
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize flashcards: %w", err)
	}
	return string(payload), nil
}

// Translate rewrites a flashcard list into the target language. On any
// internal failure, including a provider error or an empty parse, the
// original list is returned unchanged; translation never surfaces an error.
// Translating to English is a no-op.
func (s *GeneratorService) Translate(ctx context.Context, cards []models.Flashcard, target models.Language) []models.Flashcard {
	if target == models.LanguageEnglish {
		return cards
	}
	if s.provider == nil {
		return cards
	}

	payload, err := serializeCards(cards)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate flashcards: %v\n", err)
		return cards
	}
	prompt := prompts.Translation(target) + "\n\nFlashcards to translate:\n" + payload

	raw, err := s.provider.Invoke(ctx, systemTranslator, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "translate flashcards: %v\n", err)
		return cards
	}

	result := s.parseResponse(raw)
	if len(result.Flashcards) == 0 {
		fmt.Fprintf(os.Stderr, "translate flashcards: response yielded no cards\n")
		return cards
	}

	translated := result.Flashcards
	for i := range translated {
		translated[i].Language = target
	}
	return translated
}

// Improve asks the provider to edit a flashcard list for clarity and
// accuracy. Same fail-soft contract as Translate: the input comes back
// unchanged on any failure.
func (s *GeneratorService) Improve(ctx context.Context, cards []models.Flashcard) []models.Flashcard {
	if s.provider == nil {
		return cards
	}

	payload, err := serializeCards(cards)
	if err != nil {
		fmt.Fprintf(os.Stderr, "improve flashcards: %v\n", err)
		return cards
	}
	prompt := prompts.Editing() + "\n\nFlashcards to improve:\n" + payload

	raw, err := s.provider.Invoke(ctx, systemEditor, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "improve flashcards: %v\n", err)
		return cards
	}

	result := s.parseResponse(raw)
	if len(result.Flashcards) == 0 {
		fmt.Fprintf(os.Stderr, "improve flashcards: response yielded no cards\n")
		return cards
	}
	return result.Flashcards
}

// DetectTopics analyzes content structure into a topic hierarchy. Failures
// degrade to a fixed fallback payload rather than an error.
func (s *GeneratorService) DetectTopics(ctx context.Context, content string) models.TopicAnalysis {
	fallback := models.TopicAnalysis{
		Topics:         map[string]models.TopicDetail{},
		ContentSummary: msgDetectFail,
	}
	if s.provider == nil {
		fallback.ContentSummary = "Error: " + ErrProviderUnavailable.Error()
		return fallback
	}

	prompt := prompts.TopicDetection() + "\n\nContent to analyze:\n" + content
	raw, err := s.provider.Invoke(ctx, systemAnalyst, prompt)
	if err != nil {
		fallback.ContentSummary = "Error: " + err.Error()
		return fallback
	}

	jsonStr, found := parser.ExtractJSON(raw)
	if !found {
		return fallback
	}

	var analysis models.TopicAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		fallback.ContentSummary = "Error: " + err.Error()
		return fallback
	}
	if analysis.Topics == nil {
		analysis.Topics = map[string]models.TopicDetail{}
	}
	return analysis
}
