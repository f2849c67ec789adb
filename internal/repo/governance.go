package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// GovernanceRepo persists per-use-case AI-governance scoring runs and
// vector-store ingestion job records, grounded on the original
// ai_governance_pipeline's scoring/vectordb bookkeeping.
type GovernanceRepo struct {
	db *sql.DB
}

// NewGovernanceRepo opens the governance_scores and vectordb_jobs
// tables, creating them if absent.
func NewGovernanceRepo(db *sql.DB) (*GovernanceRepo, error) {
	r := &GovernanceRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("governance schema: %w", err)
	}
	return r, nil
}

func (r *GovernanceRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS governance_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		use_case_key TEXT NOT NULL,
		fairness_score REAL NOT NULL,
		explainability_score REAL NOT NULL,
		robustness_score REAL NOT NULL,
		overall_score REAL NOT NULL,
		risk_tier TEXT NOT NULL,
		computed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_governance_uc ON governance_scores(use_case_key);

	CREATE TABLE IF NOT EXISTS vectordb_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		use_case_key TEXT NOT NULL,
		collection TEXT NOT NULL,
		chunks_indexed INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		completed_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_vectordb_jobs_uc ON vectordb_jobs(use_case_key);
	`
	_, err := r.db.Exec(schema)
	return err
}

// RecordScore inserts a new governance score for a use case.
func (r *GovernanceRepo) RecordScore(s domain.GovernanceScore) (domain.GovernanceScore, error) {
	s.ComputedAt = time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO governance_scores (use_case_key, fairness_score, explainability_score, robustness_score, overall_score, risk_tier, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.UseCaseKey, s.FairnessScore, s.ExplainabilityScore, s.RobustnessScore, s.OverallScore, s.RiskTier, s.ComputedAt,
	)
	if err != nil {
		return domain.GovernanceScore{}, apierrors.Data(err, "insert governance score for %s", s.UseCaseKey)
	}
	id, _ := res.LastInsertId()
	s.ID = id
	return s, nil
}

// LatestScore returns the most recently computed score for a use case.
func (r *GovernanceRepo) LatestScore(useCaseKey string) (domain.GovernanceScore, error) {
	row := r.db.QueryRow(
		`SELECT id, use_case_key, fairness_score, explainability_score, robustness_score, overall_score, risk_tier, computed_at
		 FROM governance_scores WHERE use_case_key = ? ORDER BY computed_at DESC LIMIT 1`, useCaseKey)
	var s domain.GovernanceScore
	if err := row.Scan(&s.ID, &s.UseCaseKey, &s.FairnessScore, &s.ExplainabilityScore, &s.RobustnessScore, &s.OverallScore, &s.RiskTier, &s.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.GovernanceScore{}, apierrors.NotFound("governance score for %s", useCaseKey)
		}
		return domain.GovernanceScore{}, apierrors.Data(err, "scan governance score")
	}
	return s, nil
}

// StartVectorDBJob inserts a running vectordb ingestion job record.
func (r *GovernanceRepo) StartVectorDBJob(useCaseKey, collection string) (domain.VectorDBJob, error) {
	j := domain.VectorDBJob{
		UseCaseKey: useCaseKey,
		Collection: collection,
		Status:     string(domain.JobRunning),
		StartedAt:  time.Now().UTC(),
	}
	res, err := r.db.Exec(
		`INSERT INTO vectordb_jobs (use_case_key, collection, chunks_indexed, status, started_at) VALUES (?, ?, 0, ?, ?)`,
		j.UseCaseKey, j.Collection, j.Status, j.StartedAt,
	)
	if err != nil {
		return domain.VectorDBJob{}, apierrors.Data(err, "insert vectordb job for %s", useCaseKey)
	}
	id, _ := res.LastInsertId()
	j.ID = id
	return j, nil
}

// RecentVectorDBJobs returns the most recent vectordb ingestion jobs
// across all use cases, newest first, bounded by limit.
func (r *GovernanceRepo) RecentVectorDBJobs(limit int) ([]domain.VectorDBJob, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, use_case_key, collection, chunks_indexed, status, started_at, completed_at
		 FROM vectordb_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apierrors.Data(err, "list vectordb jobs")
	}
	defer rows.Close()

	var out []domain.VectorDBJob
	for rows.Next() {
		var j domain.VectorDBJob
		var completedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.UseCaseKey, &j.Collection, &j.ChunksIndexed, &j.Status, &j.StartedAt, &completedAt); err != nil {
			return nil, apierrors.Data(err, "scan vectordb job")
		}
		if completedAt.Valid {
			j.CompletedAt = &completedAt.Time
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CompleteVectorDBJob marks a vectordb job finished with the chunk count indexed.
func (r *GovernanceRepo) CompleteVectorDBJob(id int64, status string, chunksIndexed int) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(
		`UPDATE vectordb_jobs SET status = ?, chunks_indexed = ?, completed_at = ? WHERE id = ?`,
		status, chunksIndexed, now, id,
	)
	if err != nil {
		return apierrors.Data(err, "complete vectordb job %d", id)
	}
	return nil
}
