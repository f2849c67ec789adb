package training

import (
	"strconv"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

// BuildFrame converts a slice of column-name-to-string-value row maps
// (the shape the datasets repository hands back after a CSV/JSON
// ingest) into a Frame: the target column is extracted as the label,
// non-numeric columns are dropped, and missing numeric values are
// filled with zero.
func BuildFrame(rows []map[string]string, columns []string, target string) (Frame, error) {
	hasTarget := false
	for _, c := range columns {
		if c == target {
			hasTarget = true
			break
		}
	}
	if !hasTarget {
		return Frame{}, apierrors.Validation("target column %q not present in dataset", target)
	}

	var numericCols []string
	for _, c := range columns {
		if c == target {
			continue
		}
		if columnIsNumeric(rows, c) {
			numericCols = append(numericCols, c)
		}
	}
	if len(numericCols) == 0 {
		return Frame{}, apierrors.Data(nil, "no numeric feature columns remain after dropping the target")
	}

	frame := Frame{
		Columns: numericCols,
		Rows:    make([][]float64, len(rows)),
		Labels:  make([]float64, len(rows)),
	}
	for i, row := range rows {
		vec := make([]float64, len(numericCols))
		for j, c := range numericCols {
			vec[j] = parseFloatOrZero(row[c])
		}
		frame.Rows[i] = vec
		frame.Labels[i] = parseFloatOrZero(row[target])
	}
	return frame, nil
}

func columnIsNumeric(rows []map[string]string, col string) bool {
	seenAny := false
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == "" {
			continue
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
		seenAny = true
	}
	return seenAny
}

func parseFloatOrZero(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
