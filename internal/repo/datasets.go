package repo

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// DatasetRepo persists uploaded dataset metadata.
type DatasetRepo struct {
	db *sql.DB
}

// NewDatasetRepo opens the datasets table, creating it if absent.
func NewDatasetRepo(db *sql.DB) (*DatasetRepo, error) {
	r := &DatasetRepo{db: db}
	if err := r.initSchema(); err != nil {
		return nil, fmt.Errorf("dataset schema: %w", err)
	}
	return r, nil
}

func (r *DatasetRepo) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS datasets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		original_filename TEXT NOT NULL,
		file_path TEXT NOT NULL,
		file_size INTEGER NOT NULL,
		rows INTEGER NOT NULL DEFAULT 0,
		cols INTEGER NOT NULL DEFAULT 0,
		columns_json TEXT NOT NULL DEFAULT '[]',
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_datasets_name ON datasets(name);
	`
	_, err := r.db.Exec(schema)
	return err
}

// Create inserts a new dataset row and returns it with its assigned ID.
func (r *DatasetRepo) Create(d domain.Dataset) (domain.Dataset, error) {
	colsJSON, err := json.Marshal(d.Columns)
	if err != nil {
		return domain.Dataset{}, apierrors.Data(err, "marshal column profiles")
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	res, err := r.db.Exec(
		`INSERT INTO datasets (name, original_filename, file_path, file_size, rows, cols, columns_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, d.OriginalFilename, d.FilePath, d.FileSize, d.Rows, d.Cols, string(colsJSON), d.CreatedAt,
	)
	if err != nil {
		return domain.Dataset{}, apierrors.Data(err, "insert dataset %s", d.Name)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Dataset{}, apierrors.Data(err, "read dataset id")
	}
	d.ID = id
	return d, nil
}

// Get fetches a dataset by ID.
func (r *DatasetRepo) Get(id int64) (domain.Dataset, error) {
	row := r.db.QueryRow(
		`SELECT id, name, original_filename, file_path, file_size, rows, cols, columns_json, created_at
		 FROM datasets WHERE id = ?`, id)
	return scanDataset(row)
}

// List returns all datasets, most recently created first.
func (r *DatasetRepo) List() ([]domain.Dataset, error) {
	rows, err := r.db.Query(
		`SELECT id, name, original_filename, file_path, file_size, rows, cols, columns_json, created_at
		 FROM datasets ORDER BY created_at DESC`)
	if err != nil {
		return nil, apierrors.Data(err, "list datasets")
	}
	defer rows.Close()

	var out []domain.Dataset
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Delete removes a dataset row by ID.
func (r *DatasetRepo) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return apierrors.Data(err, "delete dataset %d", id)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apierrors.NotFound("dataset %d", id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(s scanner) (domain.Dataset, error) {
	var d domain.Dataset
	var colsJSON string
	if err := s.Scan(&d.ID, &d.Name, &d.OriginalFilename, &d.FilePath, &d.FileSize, &d.Rows, &d.Cols, &colsJSON, &d.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Dataset{}, apierrors.NotFound("dataset")
		}
		return domain.Dataset{}, apierrors.Data(err, "scan dataset")
	}
	if err := json.Unmarshal([]byte(colsJSON), &d.Columns); err != nil {
		return domain.Dataset{}, apierrors.Data(err, "unmarshal column profiles")
	}
	return d, nil
}
