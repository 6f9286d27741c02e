package api

import (
	"testing"

	"cardforge/internal/models"
)

func TestJobLifecycle(t *testing.T) {
	m := NewJobManager()

	id, snapshot := m.CreateJob([]string{"notes.pdf", "summary.txt"})
	if id == "" {
		t.Fatal("expected a job id")
	}
	if snapshot.Status != JobStatusPending {
		t.Errorf("status = %q", snapshot.Status)
	}
	if len(snapshot.Files) != 2 {
		t.Fatalf("expected 2 file entries, got %d", len(snapshot.Files))
	}
	if snapshot.Files[0].Name != "notes.pdf" || snapshot.Files[0].Status != FileStatusPending {
		t.Errorf("file 0 = %+v", snapshot.Files[0])
	}

	m.MarkProcessing(id)
	m.MarkFileStarted(id, 0, "extract")
	m.UpdateFileStep(id, 0, "generate", "Generating flashcards")
	m.MarkFileComplete(id, 0, models.GenerationResult{Success: true})
	m.MarkFileError(id, 1, "unsupported file type")
	m.MarkCompleted(id)

	job, ok := m.GetJob(id)
	if !ok {
		t.Fatal("job vanished")
	}
	if job.Status != JobStatusComplete {
		t.Errorf("status = %q", job.Status)
	}
	if job.Files[0].Status != FileStatusComplete || job.Files[0].Result == nil {
		t.Errorf("file 0 = %+v", job.Files[0])
	}
	if job.Files[1].Status != FileStatusError || job.Files[1].Error != "unsupported file type" {
		t.Errorf("file 1 = %+v", job.Files[1])
	}
}

func TestGetJobReturnsCopy(t *testing.T) {
	m := NewJobManager()
	id, _ := m.CreateJob([]string{"a.txt"})

	first, _ := m.GetJob(id)
	first.Status = "mangled"
	first.Files[0].Name = "mangled"

	second, _ := m.GetJob(id)
	if second.Status != JobStatusPending {
		t.Errorf("status = %q, caller mutation leaked in", second.Status)
	}
	if second.Files[0].Name != "a.txt" {
		t.Errorf("file name = %q, caller mutation leaked in", second.Files[0].Name)
	}
}

func TestJobFileIndexOutOfRange(t *testing.T) {
	m := NewJobManager()
	id, _ := m.CreateJob([]string{"a.txt"})

	// Out-of-range updates are ignored, not panics.
	m.MarkFileStarted(id, 5, "extract")
	m.MarkFileError(id, -1, "boom")

	job, _ := m.GetJob(id)
	if job.Files[0].Status != FileStatusPending {
		t.Errorf("file status = %q", job.Files[0].Status)
	}
}

func TestUnknownJobIgnored(t *testing.T) {
	m := NewJobManager()
	m.MarkProcessing("missing")
	if _, ok := m.GetJob("missing"); ok {
		t.Error("expected missing job to stay missing")
	}
}
