// Package parser recovers validated flashcard records from the free-form text
// an LLM provider returns. Parsing is two-stage: a structured pass that digs a
// JSON object out of the surrounding prose, and a line-oriented free-text pass
// used when no usable JSON is present. Neither stage ever propagates a decode
// failure; bad individual cards are skipped, not fatal.
package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"cardforge/internal/models"
)

// Result is the outcome of one parse attempt over a raw provider response.
type Result struct {
	Flashcards []models.Flashcard
	Topics     models.TopicMap
}

// responsePayload is the JSON shape providers are prompted to emit. Cards are
// kept raw so one malformed element cannot fail the whole batch.
type responsePayload struct {
	Flashcards []json.RawMessage `json:"flashcards"`
	Topics     models.TopicMap   `json:"topics"`
}

// ParseStructured attempts to recover flashcards from a JSON object embedded
// in raw. It reports ok=false when no JSON object can be located or decoded,
// signalling the caller to fall back to ParseFreeText on the same text. A
// missing "flashcards" key is not an error; it yields an empty list. The
// topics mapping is passed through verbatim; reconciliation happens after
// truncation.
func ParseStructured(raw string) (Result, bool) {
	jsonStr, found := ExtractJSON(raw)
	if !found {
		return Result{}, false
	}

	var payload responsePayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		fmt.Fprintf(os.Stderr, "structured parse failed, falling back to free text: %v\n", err)
		return Result{}, false
	}

	cards := make([]models.Flashcard, 0, len(payload.Flashcards))
	for _, rawCard := range payload.Flashcards {
		var in models.CardInput
		if err := json.Unmarshal(rawCard, &in); err != nil {
			fmt.Fprintf(os.Stderr, "skipping undecodable flashcard: %v\n", err)
			continue
		}
		card, err := models.NewFlashcard(in)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping invalid flashcard: %v\n", err)
			continue
		}
		cards = append(cards, card)
	}

	topics := payload.Topics
	if topics == nil {
		topics = models.TopicMap{}
	}

	return Result{Flashcards: cards, Topics: topics}, true
}

// ExtractJSON strips markdown code fences if present and narrows the content
// to the span between the first '{' and the last '}'. It reports false when
// no such brace pair exists.
func ExtractJSON(content string) (string, bool) {
	content = strings.TrimSpace(content)

	// Remove markdown code blocks like ```json ... ``` or ``` ... ```
	if strings.HasPrefix(content, "```") {
		start := 3
		if newlineIdx := strings.Index(content[start:], "\n"); newlineIdx != -1 {
			start += newlineIdx + 1
		}
		if endIdx := strings.Index(content[start:], "```"); endIdx != -1 {
			content = content[start : start+endIdx]
		} else {
			content = content[start:]
		}
	}

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return "", false
	}
	return content[startIdx : endIdx+1], true
}

const (
	defaultTopic   = "General"
	maxHeaderRunes = 50
)

// ParseFreeText is the fallback line-oriented parser for responses carrying
// no usable JSON. A short trimmed line ending in ':' opens a new topic; a
// line starting with "Q:" or "Question:" opens a card whose answer is every
// following non-blank line until the next question or end of input, joined
// with single spaces. Lines matching neither pattern are skipped. Free-text
// cards always get Medium difficulty since the format carries no signal.
func ParseFreeText(raw string) Result {
	cards := []models.Flashcard{}
	topics := models.TopicMap{defaultTopic: {}}
	currentTopic := defaultTopic

	lines := strings.Split(raw, "\n")
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		if isTopicHeader(line) {
			currentTopic = strings.TrimSpace(strings.TrimSuffix(line, ":"))
			if _, ok := topics[currentTopic]; !ok {
				topics[currentTopic] = []int{}
			}
			i++
			continue
		}

		if isQuestionLine(line) {
			question := stripQuestionPrefix(line)
			i++

			var answerParts []string
			for i < len(lines) && !isQuestionLine(strings.TrimSpace(lines[i])) {
				if part := strings.TrimSpace(lines[i]); part != "" {
					answerParts = append(answerParts, part)
				}
				i++
			}
			answer := strings.Join(answerParts, " ")

			if question != "" && answer != "" {
				card, err := models.NewFlashcard(models.CardInput{
					Question:   question,
					Answer:     answer,
					Difficulty: string(models.DifficultyMedium),
					Topic:      &currentTopic,
				})
				if err != nil {
					continue
				}
				cards = append(cards, card)
				topics[currentTopic] = append(topics[currentTopic], len(cards)-1)
			}
			continue
		}

		i++
	}

	return Result{Flashcards: cards, Topics: topics}
}

// isTopicHeader applies the operative header rule: trimmed line ends with a
// colon and is shorter than 50 characters. The original upstream check also
// uppercased the line first, which never constrains anything, so case is
// deliberately not enforced.
func isTopicHeader(line string) bool {
	return strings.HasSuffix(line, ":") && utf8.RuneCountInString(line) < maxHeaderRunes
}

func isQuestionLine(line string) bool {
	return strings.HasPrefix(line, "Q:") || strings.HasPrefix(line, "Question:")
}

func stripQuestionPrefix(line string) string {
	if rest, ok := strings.CutPrefix(line, "Question:"); ok {
		return strings.TrimSpace(rest)
	}
	if rest, ok := strings.CutPrefix(line, "Q:"); ok {
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(line)
}

// ReconcileTopics rebuilds a topic map after the flashcard list has been
// truncated to numCards entries: indices at or beyond the cutoff are dropped
// in order-preserving fashion, and topics left with no valid indices are
// removed entirely. The input map is never mutated.
func ReconcileTopics(topics models.TopicMap, numCards int) models.TopicMap {
	updated := models.TopicMap{}
	for topic, indices := range topics {
		valid := make([]int, 0, len(indices))
		for _, idx := range indices {
			if idx < numCards {
				valid = append(valid, idx)
			}
		}
		if len(valid) > 0 {
			updated[topic] = valid
		}
	}
	return updated
}
