package httpadmin

import (
	"encoding/csv"
	"os"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

// loadCSVRows reads a dataset's backing CSV file into row maps keyed by
// column name, the shape every analysis/training handler operates on.
func loadCSVRows(path string) ([]map[string]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, apierrors.Data(err, "open dataset file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, apierrors.Data(err, "parse dataset file %s", path)
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

// profileColumns builds a ColumnProfile per header column, the same
// summary persisted alongside a Dataset at upload time.
func profileColumns(rows []map[string]string, header []string) []domain.ColumnProfile {
	profiles := make([]domain.ColumnProfile, 0, len(header))
	for _, col := range header {
		nonNull, nullCount := 0, 0
		seen := make(map[string]struct{})
		numeric := true
		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == "" {
				nullCount++
				continue
			}
			nonNull++
			seen[v] = struct{}{}
			if numeric && !isNumericString(v) {
				numeric = false
			}
		}
		dtype := "string"
		if numeric && nonNull > 0 {
			dtype = "numeric"
		}
		profiles = append(profiles, domain.ColumnProfile{
			Name:      col,
			Dtype:     dtype,
			NonNull:   nonNull,
			NullCount: nullCount,
			Unique:    len(seen),
		})
	}
	return profiles
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	seenDigit, seenDot := false, false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case r == '-' && i == 0:
		default:
			return false
		}
	}
	return seenDigit
}
