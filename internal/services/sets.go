package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"cardforge/internal/models"
)

var (
	// ErrSetNotFound indicates the requested flashcard set does not exist.
	ErrSetNotFound = errors.New("flashcard set not found")
	// ErrNoDueCards indicates that a set has no cards ready to review.
	ErrNoDueCards = errors.New("no due cards")
)

// SetService persists named flashcard sets and schedules their cards for
// review with FSRS.
type SetService struct {
	db     *sql.DB
	params fsrs.Parameters
}

func NewSetService(db *sql.DB) *SetService {
	return &SetService{db: db, params: fsrs.DefaultParam()}
}

// SaveSet stores a set and its cards in one transaction, returning the new
// set ID. Fresh cards are due immediately.
func (s *SetService) SaveSet(ctx context.Context, set models.FlashcardSet) (int64, error) {
	if len(set.Flashcards) == 0 {
		return 0, errors.New("cannot save an empty flashcard set")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	language := set.Language
	if language == "" {
		language = models.LanguageEnglish
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO flashcard_sets (title, description, subject, language, created_at)
		VALUES (?, ?, ?, ?, ?);
	`, set.Title, set.Description, string(set.Subject), string(language), now)
	if err != nil {
		return 0, fmt.Errorf("insert set: %w", err)
	}
	setID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read set id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (set_id, position, question, answer, level, topic, language,
		                   due, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare card insert: %w", err)
	}
	defer stmt.Close()

	for i, card := range set.Flashcards {
		cardLanguage := card.Language
		if cardLanguage == "" {
			cardLanguage = language
		}
		if _, err = stmt.ExecContext(ctx,
			setID, i, card.Question, card.Answer,
			string(card.Difficulty), card.Topic, string(cardLanguage),
			now, now, now,
		); err != nil {
			return 0, fmt.Errorf("insert card %q: %w", card.Question, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit set: %w", err)
	}
	return setID, nil
}

// SetSummary is a set listing entry without its cards.
type SetSummary struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Subject   models.Subject  `json:"subject,omitempty"`
	Language  models.Language `json:"language"`
	CardCount int             `json:"cardCount"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ListSets returns summaries of all saved sets, newest first.
func (s *SetService) ListSets(ctx context.Context) ([]SetSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT fs.id, fs.title, fs.subject, fs.language, fs.created_at, COUNT(c.id)
		FROM flashcard_sets fs
		LEFT JOIN cards c ON c.set_id = fs.id
		GROUP BY fs.id
		ORDER BY fs.created_at DESC;
	`)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	defer rows.Close()

	var summaries []SetSummary
	for rows.Next() {
		var summary SetSummary
		var subject, language string
		if err := rows.Scan(&summary.ID, &summary.Title, &subject, &language, &summary.CreatedAt, &summary.CardCount); err != nil {
			return nil, fmt.Errorf("scan set summary: %w", err)
		}
		summary.Subject = models.Subject(subject)
		summary.Language = models.ParseLanguage(language)
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sets: %w", err)
	}
	return summaries, nil
}

// GetSet loads a set with its cards in saved order, plus a topic map rebuilt
// from the stored topic labels.
func (s *SetService) GetSet(ctx context.Context, id int64) (models.FlashcardSet, models.TopicMap, error) {
	var set models.FlashcardSet
	var subject, language string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, subject, language, created_at
		FROM flashcard_sets WHERE id = ?;
	`, id).Scan(&set.ID, &set.Title, &set.Description, &subject, &language, &set.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FlashcardSet{}, nil, ErrSetNotFound
	}
	if err != nil {
		return models.FlashcardSet{}, nil, fmt.Errorf("load set %d: %w", id, err)
	}
	set.Subject = models.Subject(subject)
	set.Language = models.ParseLanguage(language)

	rows, err := s.db.QueryContext(ctx, `
		SELECT question, answer, level, topic, language
		FROM cards WHERE set_id = ?
		ORDER BY position ASC;
	`, id)
	if err != nil {
		return models.FlashcardSet{}, nil, fmt.Errorf("load cards for set %d: %w", id, err)
	}
	defer rows.Close()

	topics := models.TopicMap{}
	for rows.Next() {
		var card models.Flashcard
		var level, cardLanguage string
		if err := rows.Scan(&card.Question, &card.Answer, &level, &card.Topic, &cardLanguage); err != nil {
			return models.FlashcardSet{}, nil, fmt.Errorf("scan card: %w", err)
		}
		card.Difficulty = models.ParseDifficulty(level)
		card.Language = models.ParseLanguage(cardLanguage)
		topics[card.Topic] = append(topics[card.Topic], len(set.Flashcards))
		set.Flashcards = append(set.Flashcards, card)
	}
	if err := rows.Err(); err != nil {
		return models.FlashcardSet{}, nil, fmt.Errorf("iterate cards: %w", err)
	}
	return set, topics, nil
}

// DeleteSet removes a set; its cards and review logs cascade.
func (s *SetService) DeleteSet(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flashcard_sets WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("delete set %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete set %d: %w", id, err)
	}
	if affected == 0 {
		return ErrSetNotFound
	}
	return nil
}

const cardColumns = `id, set_id, position, question, answer, level, topic, language,
	due, stability, difficulty, elapsed_days, scheduled_days,
	reps, lapses, state, last_review, created_at, updated_at`

// NextCard returns the next card in a set due for review: the earliest due
// card first, otherwise the oldest card never reviewed.
func (s *SetService) NextCard(ctx context.Context, setID int64) (*models.StoredCard, error) {
	now := time.Now().UTC()

	card, err := s.fetchCard(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE set_id = ? AND due IS NOT NULL AND due <= ?
		ORDER BY due ASC
		LIMIT 1;
	`, setID, now)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	card, err = s.fetchCard(ctx, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE set_id = ? AND last_review IS NULL
		ORDER BY position ASC
		LIMIT 1;
	`, setID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDueCards
		}
		return nil, err
	}
	return card, nil
}

func (s *SetService) fetchCard(ctx context.Context, query string, args ...any) (*models.StoredCard, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	card := &models.StoredCard{}
	var level, language string
	if err := row.Scan(
		&card.ID,
		&card.SetID,
		&card.Position,
		&card.Question,
		&card.Answer,
		&level,
		&card.Topic,
		&language,
		&card.Due,
		&card.Stability,
		&card.Difficulty,
		&card.ElapsedDays,
		&card.ScheduledDays,
		&card.Reps,
		&card.Lapses,
		&card.State,
		&card.LastReview,
		&card.CreatedAt,
		&card.UpdatedAt,
	); err != nil {
		return nil, err
	}
	card.Level = models.ParseDifficulty(level)
	card.Language = models.ParseLanguage(language)
	return card, nil
}

// ReviewCard applies the user's rating to a card's FSRS schedule and records
// a review log, all in one transaction.
func (s *SetService) ReviewCard(ctx context.Context, cardID int64, rating fsrs.Rating) (*models.StoredCard, *models.ReviewLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	card := &models.StoredCard{}
	var level, language string
	row := tx.QueryRowContext(ctx, `
		SELECT `+cardColumns+`
		FROM cards WHERE id = ?;
	`, cardID)
	if err = row.Scan(
		&card.ID, &card.SetID, &card.Position, &card.Question, &card.Answer,
		&level, &card.Topic, &language,
		&card.Due, &card.Stability, &card.Difficulty,
		&card.ElapsedDays, &card.ScheduledDays,
		&card.Reps, &card.Lapses, &card.State,
		&card.LastReview, &card.CreatedAt, &card.UpdatedAt,
	); err != nil {
		return nil, nil, fmt.Errorf("load card %d: %w", cardID, err)
	}
	card.Level = models.ParseDifficulty(level)
	card.Language = models.ParseLanguage(language)

	now := time.Now().UTC()
	scheduling := s.params.Repeat(card.ToFSRSCard(), now)
	info, ok := scheduling[rating]
	if !ok {
		err = fmt.Errorf("rating %d not supported", rating)
		return nil, nil, err
	}
	card.ApplyFSRSCard(info.Card)
	card.UpdatedAt = now

	if _, err = tx.ExecContext(ctx, `
		UPDATE cards
		SET due = ?, stability = ?, difficulty = ?, elapsed_days = ?, scheduled_days = ?,
		    reps = ?, lapses = ?, state = ?, last_review = ?, updated_at = ?
		WHERE id = ?;
	`,
		nullTime(card.Due),
		card.Stability,
		card.Difficulty,
		card.ElapsedDays,
		card.ScheduledDays,
		card.Reps,
		card.Lapses,
		card.State,
		nullTime(card.LastReview),
		card.UpdatedAt,
		card.ID,
	); err != nil {
		return nil, nil, fmt.Errorf("update card %d: %w", card.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO review_logs (card_id, rating, scheduled_days, elapsed_days, state, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?);
	`, card.ID, info.ReviewLog.Rating, info.ReviewLog.ScheduledDays, info.ReviewLog.ElapsedDays, info.ReviewLog.State, now); err != nil {
		return nil, nil, fmt.Errorf("insert review log: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit review: %w", err)
	}

	logEntry := &models.ReviewLog{
		CardID:        card.ID,
		Rating:        int(info.ReviewLog.Rating),
		ScheduledDays: int(info.ReviewLog.ScheduledDays),
		ElapsedDays:   int(info.ReviewLog.ElapsedDays),
		State:         int(info.ReviewLog.State),
		ReviewedAt:    now,
	}
	return card, logEntry, nil
}

func nullTime(t sql.NullTime) any {
	if t.Valid {
		return t.Time
	}
	return nil
}
