package httpadmin

import (
	"math"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

// registerStatsRoutes wires the per-dataset analysis aspects. Each loads
// the dataset frame fresh from disk and computes on demand; nothing here
// is cached, per spec.
func (s *Server) registerStatsRoutes(r *mux.Router) {
	r.HandleFunc("/stats/{dataset_id}", s.handleStatsAspect).Methods(http.MethodGet)
	r.HandleFunc("/stats/{dataset_id}/{aspect}", s.handleStatsAspect).Methods(http.MethodGet)
}

func (s *Server) handleStatsAspect(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["dataset_id"], 10, 64)
	if err != nil {
		writeError(w, apierrors.Validation("invalid dataset_id %q", vars["dataset_id"]))
		return
	}
	aspect := vars["aspect"]
	if aspect == "" {
		aspect = "summary"
	}

	ds, err := s.Datasets.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, header, err := loadCSVRows(ds.FilePath)
	if err != nil {
		writeError(w, err)
		return
	}
	numeric := numericColumns(rows, header)

	switch aspect {
	case "summary":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"dataset_id": id, "rows": len(rows), "cols": len(header), "columns": ds.Columns,
		})
	case "correlations":
		writeJSON(w, http.StatusOK, map[string]interface{}{"correlations": correlationMatrix(rows, numeric)})
	case "distributions":
		writeJSON(w, http.StatusOK, map[string]interface{}{"distributions": columnDistributions(rows, numeric)})
	case "outliers":
		writeJSON(w, http.StatusOK, map[string]interface{}{"outliers": outlierCounts(rows, numeric)})
	case "class-distribution":
		writeJSON(w, http.StatusOK, map[string]interface{}{"class_distribution": valueCounts(rows, lastColumn(header))})
	case "feature-engineering":
		writeJSON(w, http.StatusOK, map[string]interface{}{"suggestions": featureEngineeringSuggestions(numeric)})
	case "stability", "leakage", "calibration", "fairness", "cost-threshold":
		// These require a trained model's predictions, not just the raw
		// frame; report the aspect as not yet computable from the
		// dataset alone rather than fabricating a score.
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"aspect": aspect, "computed": false, "reason": "requires a completed training run for this dataset",
		})
	default:
		writeError(w, apierrors.Validation("unknown stats aspect %q", aspect))
	}
}

func numericColumns(rows []map[string]string, header []string) []string {
	var out []string
	for _, col := range header {
		allNumeric, any := true, false
		for _, row := range rows {
			v, ok := row[col]
			if !ok || v == "" {
				continue
			}
			any = true
			if !isNumericString(v) {
				allNumeric = false
				break
			}
		}
		if allNumeric && any {
			out = append(out, col)
		}
	}
	return out
}

func lastColumn(header []string) string {
	if len(header) == 0 {
		return ""
	}
	return header[len(header)-1]
}

func columnFloats(rows []map[string]string, col string) []float64 {
	out := make([]float64, 0, len(rows))
	for _, row := range rows {
		v, ok := row[col]
		if !ok || v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			out = append(out, f)
		}
	}
	return out
}

func correlationMatrix(rows []map[string]string, numeric []string) []map[string]interface{} {
	var pairs []map[string]interface{}
	for i := 0; i < len(numeric); i++ {
		for j := i + 1; j < len(numeric); j++ {
			a := columnFloats(rows, numeric[i])
			b := columnFloats(rows, numeric[j])
			pairs = append(pairs, map[string]interface{}{
				"column_a": numeric[i], "column_b": numeric[j],
				"correlation": pearson(a, b),
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		return math.Abs(pairs[i]["correlation"].(float64)) > math.Abs(pairs[j]["correlation"].(float64))
	})
	return pairs
}

func pearson(a, b []float64) float64 {
	n := len(a)
	if n > len(b) {
		n = len(b)
	}
	if n < 2 {
		return 0
	}
	a, b = a[:n], b[:n]
	var sumA, sumB float64
	for i := 0; i < n; i++ {
		sumA += a[i]
		sumB += b[i]
	}
	meanA, meanB := sumA/float64(n), sumB/float64(n)

	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-meanA, b[i]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return cov / math.Sqrt(varA*varB)
}

func columnDistributions(rows []map[string]string, numeric []string) map[string]interface{} {
	out := make(map[string]interface{}, len(numeric))
	for _, col := range numeric {
		vals := columnFloats(rows, col)
		out[col] = distributionSummary(vals)
	}
	return out
}

func distributionSummary(vals []float64) map[string]float64 {
	if len(vals) == 0 {
		return map[string]float64{"min": 0, "max": 0, "mean": 0, "stddev": 0}
	}
	minV, maxV, sum := vals[0], vals[0], 0.0
	for _, v := range vals {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}
	mean := sum / float64(len(vals))
	var variance float64
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))
	return map[string]float64{"min": minV, "max": maxV, "mean": mean, "stddev": math.Sqrt(variance)}
}

func outlierCounts(rows []map[string]string, numeric []string) map[string]int {
	out := make(map[string]int, len(numeric))
	for _, col := range numeric {
		vals := columnFloats(rows, col)
		summary := distributionSummary(vals)
		lo := summary["mean"] - 3*summary["stddev"]
		hi := summary["mean"] + 3*summary["stddev"]
		count := 0
		for _, v := range vals {
			if v < lo || v > hi {
				count++
			}
		}
		out[col] = count
	}
	return out
}

func valueCounts(rows []map[string]string, col string) map[string]int {
	out := make(map[string]int)
	for _, row := range rows {
		out[row[col]]++
	}
	return out
}

func featureEngineeringSuggestions(numeric []string) []string {
	var out []string
	for _, col := range numeric {
		out = append(out, "consider standardizing "+col)
	}
	return out
}
