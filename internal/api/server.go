package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	fsrs "github.com/open-spaced-repetition/go-fsrs"

	"cardforge/internal/models"
	"cardforge/internal/services"
)

const maxMultipartMemory = 8 << 20 // 8 MB

type Server struct {
	mux       *http.ServeMux
	generator *services.GeneratorService
	files     *services.FileService
	exports   *services.ExportService
	sets      *services.SetService
	jobs      *JobManager
}

func NewServer(
	generator *services.GeneratorService,
	files *services.FileService,
	exports *services.ExportService,
	sets *services.SetService,
) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		generator: generator,
		files:     files,
		exports:   exports,
		sets:      sets,
		jobs:      NewJobManager(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/translate", s.handleTranslate)
	s.mux.HandleFunc("/api/improve", s.handleImprove)
	s.mux.HandleFunc("/api/topics/detect", s.handleDetectTopics)
	s.mux.HandleFunc("/api/export", s.handleExport)
	s.mux.HandleFunc("/api/documents", s.handleUploadDocuments)
	s.mux.HandleFunc("/api/jobs/", s.handleJobStatus)
	s.mux.HandleFunc("/api/sets", s.handleSets)
	s.mux.HandleFunc("/api/sets/", s.handleSetActions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Content           string `json:"content"`
	Subject           string `json:"subject"`
	Language          string `json:"language"`
	NumCards          int    `json:"numCards"`
	IncludeDifficulty bool   `json:"includeDifficulty"`
	IncludeTopics     bool   `json:"includeTopics"`
}

func (p generateRequest) toModel() models.GenerationRequest {
	req := models.GenerationRequest{
		Content:           p.Content,
		Language:          models.ParseLanguage(p.Language),
		NumCards:          p.NumCards,
		IncludeDifficulty: p.IncludeDifficulty,
		IncludeTopics:     p.IncludeTopics,
	}
	if subject, ok := models.ParseSubject(p.Subject); ok {
		req.Subject = subject
	}
	return req
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	result := s.generator.Generate(r.Context(), payload.toModel())
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Flashcards     []models.Flashcard `json:"flashcards"`
		TargetLanguage string             `json:"targetLanguage"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	target := models.ParseLanguage(payload.TargetLanguage)
	translated := s.generator.Translate(r.Context(), payload.Flashcards, target)
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": translated})
}

func (s *Server) handleImprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Flashcards []models.Flashcard `json:"flashcards"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	improved := s.generator.Improve(r.Context(), payload.Flashcards)
	writeJSON(w, http.StatusOK, map[string]any{"flashcards": improved})
}

func (s *Server) handleDetectTopics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	analysis := s.generator.DetectTopics(r.Context(), payload.Content)
	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Set    models.FlashcardSet `json:"set"`
		Format string              `json:"format"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	format, err := models.ParseExportFormat(payload.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	content, filename, err := s.exports.Export(payload.Set, format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"content":  content,
		"filename": filename,
	})
}

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	form := r.MultipartForm
	if form == nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	numCards := 0
	if raw := r.FormValue("numCards"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			numCards = n
		}
	}
	base := generateRequest{
		Subject:           r.FormValue("subject"),
		Language:          r.FormValue("language"),
		NumCards:          numCards,
		IncludeDifficulty: true,
		IncludeTopics:     true,
	}

	// Copy upload contents now: the multipart temp files are removed when
	// this handler returns, before the background job reads them.
	fileNames := make([]string, len(files))
	uploads := make([]uploadedFile, len(files))
	for i, file := range files {
		fileNames[i] = file.Filename
		uploads[i] = readUpload(file)
	}

	jobID, snapshot := s.jobs.CreateJob(fileNames)

	go s.runGenerationJob(context.Background(), jobID, base, uploads)

	writeJSON(w, http.StatusAccepted, snapshot)
}

// uploadedFile is an upload copied out of the request before it finished.
type uploadedFile struct {
	name string
	data []byte
	err  error
}

func readUpload(file *multipart.FileHeader) uploadedFile {
	src, err := file.Open()
	if err != nil {
		return uploadedFile{name: file.Filename, err: fmt.Errorf("open file %s: %w", file.Filename, err)}
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return uploadedFile{name: file.Filename, err: fmt.Errorf("read file %s: %w", file.Filename, err)}
	}
	return uploadedFile{name: file.Filename, data: data}
}

func (s *Server) runGenerationJob(ctx context.Context, jobID string, base generateRequest, uploads []uploadedFile) {
	s.jobs.MarkProcessing(jobID)
	for idx, upload := range uploads {
		s.jobs.MarkFileStarted(jobID, idx, "extract")

		if upload.err != nil {
			s.jobs.MarkFileError(jobID, idx, upload.err.Error())
			continue
		}
		text, err := s.files.ExtractText(upload.name, bytes.NewReader(upload.data))
		if err != nil {
			s.jobs.MarkFileError(jobID, idx, err.Error())
			continue
		}
		if err := s.files.ValidateContent(text); err != nil {
			s.jobs.MarkFileError(jobID, idx, err.Error())
			continue
		}

		s.jobs.UpdateFileStep(jobID, idx, "generate", "Generating flashcards")
		req := base.toModel()
		req.Content = s.files.CleanText(text)
		result := s.generator.Generate(ctx, req)
		if !result.Success {
			s.jobs.MarkFileError(jobID, idx, result.ErrorMessage)
			continue
		}
		s.jobs.MarkFileComplete(jobID, idx, result)
	}
	s.jobs.MarkCompleted(jobID)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	jobID = strings.Trim(jobID, "/")
	if jobID == "" {
		http.NotFound(w, r)
		return
	}

	job, ok := s.jobs.GetJob(jobID)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleSets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summaries, err := s.sets.ListSets(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if summaries == nil {
			summaries = []services.SetSummary{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"sets": summaries})
	case http.MethodPost:
		var set models.FlashcardSet
		if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payload")
			return
		}
		if strings.TrimSpace(set.Title) == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		id, err := s.sets.SaveSet(r.Context(), set)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleSetActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sets/")
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")

	setID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid set id")
		return
	}

	switch {
	case len(parts) == 1:
		s.handleSetByID(w, r, setID)
	case len(parts) == 2 && parts[1] == "next":
		s.handleNextCard(w, r, setID)
	case len(parts) == 2 && parts[1] == "review":
		s.handleReviewCard(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleSetByID(w http.ResponseWriter, r *http.Request, setID int64) {
	switch r.Method {
	case http.MethodGet:
		set, topics, err := s.sets.GetSet(r.Context(), setID)
		if err != nil {
			if errors.Is(err, services.ErrSetNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"set": set, "topics": topics})
	case http.MethodDelete:
		if err := s.sets.DeleteSet(r.Context(), setID); err != nil {
			if errors.Is(err, services.ErrSetNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) handleNextCard(w http.ResponseWriter, r *http.Request, setID int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	card, err := s.sets.NextCard(r.Context(), setID)
	if err != nil {
		if errors.Is(err, services.ErrNoDueCards) {
			writeJSON(w, http.StatusOK, map[string]any{
				"card":    nil,
				"message": "No cards due. Come back later!",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"card": storedCardView(card)})
}

type reviewRequest struct {
	CardID int64  `json:"cardId"`
	Rating string `json:"rating"`
}

func (s *Server) handleReviewCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	rating, err := parseRating(payload.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card, logEntry, err := s.sets.ReviewCard(r.Context(), payload.CardID, rating)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"card": storedCardView(card),
		"log": map[string]any{
			"rating":  logEntry.Rating,
			"dueIn":   logEntry.ScheduledDays,
			"updated": logEntry.ReviewedAt.Format(timeLayout),
		},
	})
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func storedCardView(card *models.StoredCard) map[string]any {
	return map[string]any{
		"id":        card.ID,
		"question":  card.Question,
		"answer":    card.Answer,
		"level":     card.Level,
		"topic":     card.Topic,
		"language":  card.Language,
		"due":       nullTimeToString(card.Due),
		"state":     card.State,
		"stability": card.Stability,
	}
}

func parseRating(raw string) (fsrs.Rating, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "again":
		return fsrs.Again, nil
	case "hard":
		return fsrs.Hard, nil
	case "good":
		return fsrs.Good, nil
	case "easy":
		return fsrs.Easy, nil
	default:
		return 0, fmt.Errorf("unknown rating %q", raw)
	}
}

func nullTimeToString(t sql.NullTime) *string {
	if t.Valid {
		str := t.Time.Format(timeLayout)
		return &str
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
