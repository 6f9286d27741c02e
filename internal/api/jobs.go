package api

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cardforge/internal/models"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusComplete   = "complete"
	JobStatusFailed     = "failed"

	FileStatusPending    = "pending"
	FileStatusProcessing = "processing"
	FileStatusComplete   = "complete"
	FileStatusError      = "error"
)

// GenerationJob tracks the progress of one upload request across its files.
type GenerationJob struct {
	ID        string         `json:"jobId"`
	Status    string         `json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Files     []FileProgress `json:"files"`
	Error     string         `json:"error,omitempty"`
}

// FileProgress captures per-file state that the frontend polls.
type FileProgress struct {
	Index   int                      `json:"index"`
	Name    string                   `json:"name"`
	Status  string                   `json:"status"`
	Step    string                   `json:"step,omitempty"`
	Message string                   `json:"message,omitempty"`
	Result  *models.GenerationResult `json:"result,omitempty"`
	Error   string                   `json:"error,omitempty"`
}

type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*GenerationJob
}

func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*GenerationJob),
	}
}

func (m *JobManager) CreateJob(fileNames []string) (string, *GenerationJob) {
	files := make([]FileProgress, len(fileNames))
	for i, name := range fileNames {
		files[i] = FileProgress{
			Index:  i,
			Name:   name,
			Status: FileStatusPending,
		}
	}
	job := &GenerationJob{
		ID:        uuid.NewString(),
		Status:    JobStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Files:     files,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job.ID, job.clone()
}

func (m *JobManager) GetJob(id string) (*GenerationJob, bool) {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return job.clone(), true
}

func (m *JobManager) MarkProcessing(id string) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusProcessing
	})
}

func (m *JobManager) MarkCompleted(id string) {
	m.withJob(id, func(job *GenerationJob) {
		job.Status = JobStatusComplete
	})
}

func (m *JobManager) MarkFileStarted(id string, index int, step string) {
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusProcessing
			file.Step = step
			file.Message = ""
			file.Error = ""
		}
	})
}

func (m *JobManager) UpdateFileStep(id string, index int, step, message string) {
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusProcessing
			file.Step = step
			file.Message = message
		}
	})
}

func (m *JobManager) MarkFileComplete(id string, index int, result models.GenerationResult) {
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusComplete
			file.Step = "complete"
			file.Message = "Generation complete"
			file.Result = &result
			file.Error = ""
		}
	})
}

func (m *JobManager) MarkFileError(id string, index int, message string) {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "processing error"
	}
	m.withJob(id, func(job *GenerationJob) {
		if file := job.file(index); file != nil {
			file.Status = FileStatusError
			file.Step = "error"
			file.Message = msg
			file.Error = msg
		}
	})
}

func (m *JobManager) withJob(id string, fn func(job *GenerationJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
}

func (job *GenerationJob) file(index int) *FileProgress {
	if index < 0 || index >= len(job.Files) {
		return nil
	}
	return &job.Files[index]
}

func (job *GenerationJob) clone() *GenerationJob {
	if job == nil {
		return nil
	}
	out := *job
	out.Files = make([]FileProgress, len(job.Files))
	copy(out.Files, job.Files)
	for i := range out.Files {
		if out.Files[i].Result != nil {
			result := *out.Files[i].Result
			out.Files[i].Result = &result
		}
	}
	return &out
}
