package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// AuditRepo is an append-only log of state-changing operations.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo opens the audit_log table, creating it if absent.
func NewAuditRepo(db *sql.DB) (*AuditRepo, error) {
	r := &AuditRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("audit schema: %w", err)
	}
	return r, nil
}

func (r *AuditRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		user TEXT NOT NULL DEFAULT 'system',
		entry_type TEXT NOT NULL DEFAULT 'info',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Append records a single audit entry. Failure to append is always
// logged by the caller but never aborts the operation being audited.
func (r *AuditRepo) Append(action, detail, user string, entryType domain.AuditEntryType) error {
	if user == "" {
		user = "system"
	}
	if entryType == "" {
		entryType = domain.AuditInfo
	}
	_, err := r.db.Exec(
		`INSERT INTO audit_log (action, detail, user, entry_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		action, detail, user, entryType, time.Now().UTC(),
	)
	if err != nil {
		return apierrors.Data(err, "append audit entry %s", action)
	}
	return nil
}

// Recent returns the most recent audit entries, newest first, bounded by limit.
func (r *AuditRepo) Recent(limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.Query(
		`SELECT id, action, detail, user, entry_type, created_at FROM audit_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apierrors.Data(err, "list audit entries")
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &e.User, &e.EntryType, &e.CreatedAt); err != nil {
			return nil, apierrors.Data(err, "scan audit entry")
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
