package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// AlertRepo persists threshold alert rules.
type AlertRepo struct {
	db *sql.DB
}

// NewAlertRepo opens the alerts table, creating it if absent.
func NewAlertRepo(db *sql.DB) (*AlertRepo, error) {
	r := &AlertRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("alert schema: %w", err)
	}
	return r, nil
}

func (r *AlertRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		metric TEXT NOT NULL,
		threshold REAL NOT NULL,
		operator TEXT NOT NULL,
		uc_id TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT 'warning',
		enabled INTEGER NOT NULL DEFAULT 1,
		last_triggered TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Create inserts a new alert rule.
func (r *AlertRepo) Create(a domain.Alert) (domain.Alert, error) {
	a.CreatedAt = time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO alerts (name, metric, threshold, operator, uc_id, severity, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, a.Metric, a.Threshold, a.Operator, a.UseCaseID, a.Severity, a.Enabled, a.CreatedAt,
	)
	if err != nil {
		return domain.Alert{}, apierrors.Data(err, "insert alert %s", a.Name)
	}
	id, _ := res.LastInsertId()
	a.ID = id
	return a, nil
}

// List returns all alert rules.
func (r *AlertRepo) List() ([]domain.Alert, error) {
	rows, err := r.db.Query(
		`SELECT id, name, metric, threshold, operator, uc_id, severity, enabled, last_triggered, created_at
		 FROM alerts ORDER BY created_at DESC`)
	if err != nil {
		return nil, apierrors.Data(err, "list alerts")
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Get fetches an alert by ID.
func (r *AlertRepo) Get(id int64) (domain.Alert, error) {
	row := r.db.QueryRow(
		`SELECT id, name, metric, threshold, operator, uc_id, severity, enabled, last_triggered, created_at
		 FROM alerts WHERE id = ?`, id)
	return scanAlert(row)
}

// MarkTriggered stamps last_triggered to now.
func (r *AlertRepo) MarkTriggered(id int64) error {
	_, err := r.db.Exec(`UPDATE alerts SET last_triggered = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return apierrors.Data(err, "mark alert %d triggered", id)
	}
	return nil
}

// Delete removes an alert rule.
func (r *AlertRepo) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return apierrors.Data(err, "delete alert %d", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.NotFound("alert %d", id)
	}
	return nil
}

func scanAlert(s scanner) (domain.Alert, error) {
	var a domain.Alert
	var lastTriggered sql.NullTime
	if err := s.Scan(&a.ID, &a.Name, &a.Metric, &a.Threshold, &a.Operator, &a.UseCaseID, &a.Severity, &a.Enabled, &lastTriggered, &a.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Alert{}, apierrors.NotFound("alert")
		}
		return domain.Alert{}, apierrors.Data(err, "scan alert")
	}
	if lastTriggered.Valid {
		a.LastTriggered = &lastTriggered.Time
	}
	return a, nil
}
