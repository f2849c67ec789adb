package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/repo"
)

func newTestJobRepo(t *testing.T) *repo.JobRepo {
	t.Helper()
	db, err := repo.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("repo.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	jr, err := repo.NewJobRepo(db)
	if err != nil {
		t.Fatalf("NewJobRepo: %v", err)
	}
	return jr
}

func okSubtask(ctx context.Context, in SubtaskInput) SubtaskResult {
	return SubtaskResult{Status: StatusOK, ArtifactPaths: []string{"/tmp/x"}}
}

func allOKSubtasks() map[SubtaskName]Subtask {
	m := make(map[SubtaskName]Subtask, len(Plan))
	for _, name := range Plan {
		m[name] = okSubtask
	}
	return m
}

func TestRunUseCaseCompletesAllSubtasks(t *testing.T) {
	jobs := newTestJobRepo(t)
	job, err := jobs.Create("pipeline", "{}")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s := New(jobs, allOKSubtasks(), nil, 2)
	run := s.RunUseCase(context.Background(), "credit_risk", job.ID)

	if run.Status != domain.JobCompleted {
		t.Fatalf("Status = %s, want completed", run.Status)
	}
	if len(run.Results) != len(Plan) {
		t.Errorf("Results has %d entries, want %d", len(run.Results), len(Plan))
	}

	got, err := jobs.Get(job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.JobCompleted {
		t.Errorf("persisted status = %s, want completed", got.Status)
	}
}

func TestRunUseCaseAbortsOnFailure(t *testing.T) {
	jobs := newTestJobRepo(t)
	job, _ := jobs.Create("pipeline", "{}")

	subtasks := allOKSubtasks()
	subtasks[SubtaskModelTraining] = func(ctx context.Context, in SubtaskInput) SubtaskResult {
		return SubtaskResult{Status: StatusFail, Error: "training blew up"}
	}

	s := New(jobs, subtasks, nil, 1)
	run := s.RunUseCase(context.Background(), "credit_risk", job.ID)

	if run.Status != domain.JobFailed {
		t.Fatalf("Status = %s, want failed", run.Status)
	}
	if _, ran := run.Results[SubtaskModelEvaluation]; ran {
		t.Error("downstream subtask ran after a failure")
	}

	got, _ := jobs.Get(job.ID)
	if got.Status != domain.JobFailed {
		t.Errorf("persisted status = %s, want failed", got.Status)
	}
}

func TestShutdownCancelsInFlightRun(t *testing.T) {
	jobs := newTestJobRepo(t)
	job, _ := jobs.Create("pipeline", "{}")

	subtasks := allOKSubtasks()
	s := New(jobs, subtasks, nil, 1)
	subtasks[SubtaskNoiseRemoval] = func(ctx context.Context, in SubtaskInput) SubtaskResult {
		s.Shutdown()
		return SubtaskResult{Status: StatusOK}
	}

	run := s.RunUseCase(context.Background(), "credit_risk", job.ID)
	if run.Status != domain.JobCancelled {
		t.Fatalf("Status = %s, want cancelled", run.Status)
	}
}

func TestReconcileOrphansMarksOldRunningJobsFailed(t *testing.T) {
	jobs := newTestJobRepo(t)
	job, _ := jobs.Create("pipeline", "{}")
	jobs.UpdateStatus(job.ID, domain.JobRunning)

	n, err := ReconcileOrphans(jobs, time.Millisecond)
	if err != nil {
		t.Fatalf("ReconcileOrphans: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	n, err = ReconcileOrphans(jobs, time.Millisecond)
	if err != nil {
		t.Fatalf("ReconcileOrphans: %v", err)
	}
	if n != 1 {
		t.Fatalf("reconciled %d jobs, want 1", n)
	}
	got, _ := jobs.Get(job.ID)
	if got.Status != domain.JobFailed || got.ErrorMessage != "orphaned" {
		t.Errorf("job = %+v, want failed/orphaned", got)
	}
}

func TestFileHashAndOutputExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if !OutputExists(path) {
		t.Error("OutputExists = false, want true")
	}
	if OutputExists(filepath.Join(dir, "missing.txt")) {
		t.Error("OutputExists for missing file = true, want false")
	}
	h1, err := FileHash(path)
	if err != nil {
		t.Fatalf("FileHash: %v", err)
	}
	h2, _ := FileHash(path)
	if h1 != h2 {
		t.Errorf("FileHash not stable: %s != %s", h1, h2)
	}
}
