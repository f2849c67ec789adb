package repo

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// Text2SQLRepo persists the history of natural-language-to-SQL requests.
type Text2SQLRepo struct {
	db *sql.DB
}

// NewText2SQLRepo opens the text2sql_history table, creating it if absent.
func NewText2SQLRepo(db *sql.DB) (*Text2SQLRepo, error) {
	r := &Text2SQLRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("text2sql schema: %w", err)
	}
	return r, nil
}

func (r *Text2SQLRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS text2sql_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		natural_language TEXT NOT NULL,
		generated_sql TEXT NOT NULL,
		executed INTEGER NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Record inserts a completed natural-language-to-SQL round trip.
func (r *Text2SQLRepo) Record(h domain.Text2SQLHistory) (domain.Text2SQLHistory, error) {
	h.CreatedAt = time.Now().UTC()
	res, err := r.db.Exec(
		`INSERT INTO text2sql_history (natural_language, generated_sql, executed, row_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		h.NaturalLanguage, h.GeneratedSQL, h.Executed, h.RowCount, h.CreatedAt,
	)
	if err != nil {
		return domain.Text2SQLHistory{}, apierrors.Data(err, "insert text2sql history")
	}
	id, _ := res.LastInsertId()
	h.ID = id
	return h, nil
}

// Recent returns the most recent history entries, newest first.
func (r *Text2SQLRepo) Recent(limit int) ([]domain.Text2SQLHistory, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, natural_language, generated_sql, executed, row_count, created_at
		 FROM text2sql_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, apierrors.Data(err, "list text2sql history")
	}
	defer rows.Close()

	var out []domain.Text2SQLHistory
	for rows.Next() {
		var h domain.Text2SQLHistory
		if err := rows.Scan(&h.ID, &h.NaturalLanguage, &h.GeneratedSQL, &h.Executed, &h.RowCount, &h.CreatedAt); err != nil {
			return nil, apierrors.Data(err, "scan text2sql history")
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
