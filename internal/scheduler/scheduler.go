// Package scheduler drives the twelve-subtask, per-use-case pipeline:
// data_split, noise_removal, model_training, model_evaluation,
// ensemble_training, model_benchmarking, ai_governance_scoring,
// chunking, embedding, vector_db_ingestion, rag_evaluation, and
// report_generation. Subtasks within one use case run strictly
// sequentially; use cases run concurrently across a bounded worker
// pool. Grounded on the corpus's dispatcher/plan-execution pattern
// (one result struct per unit of work, a shutdown flag polled between
// units) and its thread-safe task queue.
package scheduler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/events"
	"github.com/antigravity-dev/banking-platform/internal/logging"
	"github.com/antigravity-dev/banking-platform/internal/repo"
)

var log = logging.For("scheduler")

// SubtaskName identifies one of the twelve pipeline stages, in
// execution order.
type SubtaskName string

const (
	SubtaskDataSplit           SubtaskName = "data_split"
	SubtaskNoiseRemoval        SubtaskName = "noise_removal"
	SubtaskModelTraining       SubtaskName = "model_training"
	SubtaskModelEvaluation     SubtaskName = "model_evaluation"
	SubtaskEnsembleTraining    SubtaskName = "ensemble_training"
	SubtaskModelBenchmarking   SubtaskName = "model_benchmarking"
	SubtaskAIGovernanceScoring SubtaskName = "ai_governance_scoring"
	SubtaskChunking            SubtaskName = "chunking"
	SubtaskEmbedding           SubtaskName = "embedding"
	SubtaskVectorDBIngestion   SubtaskName = "vector_db_ingestion"
	SubtaskRAGEvaluation       SubtaskName = "rag_evaluation"
	SubtaskReportGeneration    SubtaskName = "report_generation"
)

// Plan is the fixed, ordered list of subtasks run for every use case.
var Plan = []SubtaskName{
	SubtaskDataSplit, SubtaskNoiseRemoval, SubtaskModelTraining, SubtaskModelEvaluation,
	SubtaskEnsembleTraining, SubtaskModelBenchmarking, SubtaskAIGovernanceScoring,
	SubtaskChunking, SubtaskEmbedding, SubtaskVectorDBIngestion,
	SubtaskRAGEvaluation, SubtaskReportGeneration,
}

// SubtaskStatus is the outcome of one subtask attempt.
type SubtaskStatus string

const (
	StatusOK   SubtaskStatus = "ok"
	StatusSkip SubtaskStatus = "skip"
	StatusFail SubtaskStatus = "fail"
)

// SubtaskResult is what a Subtask function returns.
type SubtaskResult struct {
	Status        SubtaskStatus
	ArtifactPaths []string
	Metrics       map[string]interface{}
	Error         string
}

// SubtaskInput is what every Subtask function receives.
type SubtaskInput struct {
	UseCaseKey   string
	PriorPaths   []string
	PriorMetrics map[string]interface{}
}

// Subtask implements one of the twelve pipeline stages.
type Subtask func(ctx context.Context, in SubtaskInput) SubtaskResult

// PipelineRun is the outcome of running the full plan for one use case.
type PipelineRun struct {
	UseCaseKey string
	JobID      int64
	Status     domain.JobStatus
	Results    map[SubtaskName]SubtaskResult
	StartedAt  time.Time
	EndedAt    time.Time
}

const defaultOrphanGrace = 10 * time.Minute

// Scheduler owns the bounded worker pool and the shutdown flag; it
// dispatches one PipelineRun per use case concurrently while each
// run's subtasks execute strictly in order.
type Scheduler struct {
	jobs       *repo.JobRepo
	subtasks   map[SubtaskName]Subtask
	bus        *events.Bus
	maxWorkers int

	shuttingDown atomic.Bool
	wg           sync.WaitGroup
	sem          chan struct{}
}

// New builds a Scheduler. maxWorkers <= 0 selects min(CPU count, 8).
func New(jobs *repo.JobRepo, subtasks map[SubtaskName]Subtask, bus *events.Bus, maxWorkers int) *Scheduler {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
		if maxWorkers > 8 {
			maxWorkers = 8
		}
		if maxWorkers < 1 {
			maxWorkers = 1
		}
	}
	return &Scheduler{
		jobs:       jobs,
		subtasks:   subtasks,
		bus:        bus,
		maxWorkers: maxWorkers,
		sem:        make(chan struct{}, maxWorkers),
	}
}

// Shutdown sets the shutdown flag; in-flight use cases finish their
// current subtask and then stop, never starting the next one.
func (s *Scheduler) Shutdown() {
	s.shuttingDown.Store(true)
}

// Wait blocks until every dispatched RunUseCase call has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// RunUseCase runs the twelve-subtask plan for one use case, blocking
// until the plan completes, fails, or the scheduler is shut down. It
// acquires a worker slot from the bounded pool before starting.
func (s *Scheduler) RunUseCase(ctx context.Context, useCaseKey string, jobID int64) PipelineRun {
	s.wg.Add(1)
	defer s.wg.Done()

	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	run := PipelineRun{
		UseCaseKey: useCaseKey,
		JobID:      jobID,
		Results:    make(map[SubtaskName]SubtaskResult, len(Plan)),
		StartedAt:  time.Now().UTC(),
	}

	if err := s.jobs.UpdateStatus(jobID, domain.JobRunning); err != nil {
		log.Errorf(err, "failed to mark job %d running", jobID)
	}
	s.publish(useCaseKey, jobID, "", "running")

	var priorPaths []string
	priorMetrics := map[string]interface{}{}

	for i, name := range Plan {
		if s.shuttingDown.Load() {
			run.Results[name] = SubtaskResult{Status: StatusFail, Error: "cancelled"}
			run.Status = domain.JobCancelled
			s.finish(jobID, useCaseKey, run)
			return run
		}
		select {
		case <-ctx.Done():
			run.Results[name] = SubtaskResult{Status: StatusFail, Error: "cancelled"}
			run.Status = domain.JobCancelled
			s.finish(jobID, useCaseKey, run)
			return run
		default:
		}

		fn, ok := s.subtasks[name]
		if !ok {
			run.Results[name] = SubtaskResult{Status: StatusFail, Error: fmt.Sprintf("no implementation registered for %s", name)}
			run.Status = domain.JobFailed
			s.finish(jobID, useCaseKey, run)
			return run
		}

		result := fn(ctx, SubtaskInput{UseCaseKey: useCaseKey, PriorPaths: priorPaths, PriorMetrics: priorMetrics})
		run.Results[name] = result
		s.publish(useCaseKey, jobID, string(name), string(result.Status))

		progress := int(float64(i+1) / float64(len(Plan)) * 100)
		if err := s.jobs.UpdateProgress(jobID, progress); err != nil {
			log.Warnf("failed to update progress for job %d: %v", jobID, err)
		}

		if result.Status == StatusFail {
			run.Status = domain.JobFailed
			if err := s.jobs.Fail(jobID, fmt.Sprintf("%s: %s", name, result.Error)); err != nil {
				log.Errorf(err, "failed to record failure for job %d", jobID)
			}
			run.EndedAt = time.Now().UTC()
			s.publish(useCaseKey, jobID, string(name), "failed")
			return run
		}

		priorPaths = result.ArtifactPaths
		for k, v := range result.Metrics {
			priorMetrics[k] = v
		}
	}

	run.Status = domain.JobCompleted
	s.finish(jobID, useCaseKey, run)
	return run
}

func (s *Scheduler) finish(jobID int64, useCaseKey string, run PipelineRun) {
	run.EndedAt = time.Now().UTC()
	switch run.Status {
	case domain.JobCompleted:
		if err := s.jobs.UpdateResult(jobID, "{}"); err != nil {
			log.Errorf(err, "failed to finalize job %d", jobID)
		}
	case domain.JobCancelled:
		if err := s.jobs.UpdateStatus(jobID, domain.JobCancelled); err != nil {
			log.Errorf(err, "failed to mark job %d cancelled", jobID)
		}
	}
	s.publish(useCaseKey, jobID, "", string(run.Status))
}

func (s *Scheduler) publish(useCaseKey string, jobID int64, subtask, status string) {
	if s.bus == nil {
		return
	}
	s.bus.PublishTransition(events.Transition{
		UseCaseKey: useCaseKey,
		JobID:      jobID,
		Subtask:    subtask,
		Status:     status,
		At:         time.Now().UTC(),
	})
}

// ReconcileOrphans marks any job still "running" past the grace window
// as failed with error "orphaned" — the recovery path for a process
// that was SIGKILLed mid-run. grace <= 0 selects the 10-minute default.
func ReconcileOrphans(jobs *repo.JobRepo, grace time.Duration) (int, error) {
	if grace <= 0 {
		grace = defaultOrphanGrace
	}
	cutoff := time.Now().UTC().Add(-grace)
	orphaned, err := jobs.Orphaned(cutoff)
	if err != nil {
		return 0, err
	}
	for _, j := range orphaned {
		if err := jobs.Fail(j.ID, "orphaned"); err != nil {
			log.Errorf(err, "failed to mark job %d orphaned", j.ID)
		}
	}
	return len(orphaned), nil
}

// FileHash returns the SHA-256 hex digest of a file's contents.
// RunUseCase does not call it: no subtask is skipped because its inputs
// are unchanged since its last successful run.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OutputExists reports whether a file is present. RunUseCase does not
// call it, so a run started again after a restart executes every
// subtask from the first one.
func OutputExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
