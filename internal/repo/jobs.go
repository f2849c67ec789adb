package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// JobRepo persists scheduler job/subtask records.
type JobRepo struct {
	db *sql.DB
}

// NewJobRepo opens the jobs table, creating it if absent.
func NewJobRepo(db *sql.DB) (*JobRepo, error) {
	r := &JobRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("job schema: %w", err)
	}
	return r, nil
}

func (r *JobRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_type TEXT NOT NULL,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		config_json TEXT NOT NULL DEFAULT '{}',
		result_json TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
	CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(job_type);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Create inserts a new job in the queued state.
func (r *JobRepo) Create(jobType, configJSON string) (domain.Job, error) {
	j := domain.Job{
		JobType:    jobType,
		Status:     domain.JobQueued,
		ConfigJSON: configJSON,
		CreatedAt:  time.Now().UTC(),
	}
	res, err := r.db.Exec(
		`INSERT INTO jobs (job_type, status, progress, config_json, result_json, error_message, created_at)
		 VALUES (?, ?, 0, ?, '', '', ?)`,
		j.JobType, j.Status, j.ConfigJSON, j.CreatedAt,
	)
	if err != nil {
		return domain.Job{}, apierrors.Data(err, "insert job %s", jobType)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Job{}, apierrors.Data(err, "read job id")
	}
	j.ID = id
	return j, nil
}

// Get fetches a job by ID.
func (r *JobRepo) Get(id int64) (domain.Job, error) {
	row := r.db.QueryRow(
		`SELECT id, job_type, status, progress, config_json, result_json, error_message, started_at, completed_at, created_at
		 FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns jobs optionally filtered by status, newest first.
func (r *JobRepo) List(status domain.JobStatus) ([]domain.Job, error) {
	var rows *sql.Rows
	var err error
	if status == "" {
		rows, err = r.db.Query(
			`SELECT id, job_type, status, progress, config_json, result_json, error_message, started_at, completed_at, created_at
			 FROM jobs ORDER BY created_at DESC`)
	} else {
		rows, err = r.db.Query(
			`SELECT id, job_type, status, progress, config_json, result_json, error_message, started_at, completed_at, created_at
			 FROM jobs WHERE status = ? ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, apierrors.Data(err, "list jobs")
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpdateStatus transitions a job to a new status, stamping started_at on
// the first transition into Running and completed_at on any terminal status.
func (r *JobRepo) UpdateStatus(id int64, status domain.JobStatus) error {
	now := time.Now().UTC()
	var err error
	switch {
	case status == domain.JobRunning:
		_, err = r.db.Exec(`UPDATE jobs SET status = ?, started_at = COALESCE(started_at, ?) WHERE id = ?`, status, now, id)
	case status.Terminal():
		_, err = r.db.Exec(`UPDATE jobs SET status = ?, completed_at = ? WHERE id = ?`, status, now, id)
	default:
		_, err = r.db.Exec(`UPDATE jobs SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return apierrors.Data(err, "update job %d status", id)
	}
	return nil
}

// UpdateProgress sets the 0-100 progress indicator for a running job.
func (r *JobRepo) UpdateProgress(id int64, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	_, err := r.db.Exec(`UPDATE jobs SET progress = ? WHERE id = ?`, progress, id)
	if err != nil {
		return apierrors.Data(err, "update job %d progress", id)
	}
	return nil
}

// UpdateResult stores the final result payload and marks the job completed.
func (r *JobRepo) UpdateResult(id int64, resultJSON string) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(
		`UPDATE jobs SET status = ?, progress = 100, result_json = ?, completed_at = ? WHERE id = ?`,
		domain.JobCompleted, resultJSON, now, id,
	)
	if err != nil {
		return apierrors.Data(err, "update job %d result", id)
	}
	return nil
}

// Fail marks a job failed and records the error message.
func (r *JobRepo) Fail(id int64, errMsg string) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(
		`UPDATE jobs SET status = ?, error_message = ?, completed_at = ? WHERE id = ?`,
		domain.JobFailed, errMsg, now, id,
	)
	if err != nil {
		return apierrors.Data(err, "fail job %d", id)
	}
	return nil
}

// Cancel marks a queued or running job cancelled. It is a no-op that
// returns apierrors.Validation if the job is already terminal.
func (r *JobRepo) Cancel(id int64) error {
	job, err := r.Get(id)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return apierrors.Validation("job %d is already %s", id, job.Status)
	}
	return r.UpdateStatus(id, domain.JobCancelled)
}

// Orphaned returns running jobs whose started_at predates the given
// cutoff, used by the scheduler's reconciliation sweep to find jobs
// abandoned by a crashed worker.
func (r *JobRepo) Orphaned(cutoff time.Time) ([]domain.Job, error) {
	rows, err := r.db.Query(
		`SELECT id, job_type, status, progress, config_json, result_json, error_message, started_at, completed_at, created_at
		 FROM jobs WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`,
		domain.JobRunning, cutoff,
	)
	if err != nil {
		return nil, apierrors.Data(err, "list orphaned jobs")
	}
	defer rows.Close()

	var out []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(s scanner) (domain.Job, error) {
	var j domain.Job
	var started, completed sql.NullTime
	if err := s.Scan(&j.ID, &j.JobType, &j.Status, &j.Progress, &j.ConfigJSON, &j.ResultJSON, &j.ErrorMessage, &started, &completed, &j.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Job{}, apierrors.NotFound("job")
		}
		return domain.Job{}, apierrors.Data(err, "scan job")
	}
	if started.Valid {
		j.StartedAt = &started.Time
	}
	if completed.Valid {
		j.CompletedAt = &completed.Time
	}
	return j, nil
}
