package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// PreprocessingRepo persists per-use-case preprocessing run reports.
// Each report is stored as a JSON blob keyed by use case and run
// timestamp, since its shape varies with which analysis steps ran.
type PreprocessingRepo struct {
	db *sql.DB
}

// NewPreprocessingRepo opens the preprocessing_reports table, creating
// it if absent.
func NewPreprocessingRepo(db *sql.DB) (*PreprocessingRepo, error) {
	r := &PreprocessingRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("preprocessing schema: %w", err)
	}
	return r, nil
}

func (r *PreprocessingRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS preprocessing_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		use_case_key TEXT NOT NULL,
		report_json TEXT NOT NULL,
		run_timestamp TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_preprocessing_uc ON preprocessing_reports(use_case_key, run_timestamp DESC);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Save persists a preprocessing report.
func (r *PreprocessingRepo) Save(rep domain.PreprocessingReport) error {
	if rep.RunTimestamp.IsZero() {
		rep.RunTimestamp = time.Now().UTC()
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return apierrors.Data(err, "marshal preprocessing report for %s", rep.UseCaseKey)
	}
	_, err = r.db.Exec(
		`INSERT INTO preprocessing_reports (use_case_key, report_json, run_timestamp) VALUES (?, ?, ?)`,
		rep.UseCaseKey, string(b), rep.RunTimestamp,
	)
	if err != nil {
		return apierrors.Data(err, "insert preprocessing report for %s", rep.UseCaseKey)
	}
	return nil
}

// Latest returns the most recent report for a use case.
func (r *PreprocessingRepo) Latest(useCaseKey string) (domain.PreprocessingReport, error) {
	row := r.db.QueryRow(
		`SELECT report_json FROM preprocessing_reports WHERE use_case_key = ? ORDER BY run_timestamp DESC LIMIT 1`, useCaseKey)
	var reportJSON string
	if err := row.Scan(&reportJSON); err != nil {
		if err == sql.ErrNoRows {
			return domain.PreprocessingReport{}, apierrors.NotFound("preprocessing report for %s", useCaseKey)
		}
		return domain.PreprocessingReport{}, apierrors.Data(err, "scan preprocessing report")
	}
	var rep domain.PreprocessingReport
	if err := json.Unmarshal([]byte(reportJSON), &rep); err != nil {
		return domain.PreprocessingReport{}, apierrors.Data(err, "unmarshal preprocessing report for %s", useCaseKey)
	}
	return rep, nil
}

// History returns all reports for a use case, newest first.
func (r *PreprocessingRepo) History(useCaseKey string, limit int) ([]domain.PreprocessingReport, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	rows, err := r.db.Query(
		`SELECT report_json FROM preprocessing_reports WHERE use_case_key = ? ORDER BY run_timestamp DESC LIMIT ?`,
		useCaseKey, limit,
	)
	if err != nil {
		return nil, apierrors.Data(err, "list preprocessing reports for %s", useCaseKey)
	}
	defer rows.Close()

	var out []domain.PreprocessingReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, apierrors.Data(err, "scan preprocessing report")
		}
		var rep domain.PreprocessingReport
		if err := json.Unmarshal([]byte(reportJSON), &rep); err != nil {
			return nil, apierrors.Data(err, "unmarshal preprocessing report for %s", useCaseKey)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
