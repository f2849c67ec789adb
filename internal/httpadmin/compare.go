package httpadmin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/report"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
)

func (s *Server) registerCompareRoutes(r *mux.Router) {
	r.HandleFunc("/compare/portfolio", s.handleComparePortfolio).Methods(http.MethodGet)
	r.HandleFunc("/compare/side-by-side", s.handleCompareSideBySide).Methods(http.MethodGet)
	r.HandleFunc("/compare/department-summary", s.handleCompareDepartmentSummary).Methods(http.MethodGet)
	r.HandleFunc("/compare/business-case/{uc_id}", s.handleCompareBusinessCase).Methods(http.MethodGet)
}

func (s *Server) handleComparePortfolio(w http.ResponseWriter, r *http.Request) {
	var out []report.Report
	for _, uc := range usecases.All {
		rep, err := report.Compile(uc.Key, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, rep)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompareSideBySide(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()["uc_id"]
	if len(q) == 0 {
		writeError(w, apierrors.Validation("at least one uc_id query parameter is required"))
		return
	}
	var out []report.Report
	for _, key := range q {
		if _, ok := usecases.Get(key); !ok {
			writeError(w, apierrors.NotFound("use case %q", key))
			return
		}
		rep, err := report.Compile(key, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, rep)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCompareDepartmentSummary(w http.ResponseWriter, r *http.Request) {
	byDept := map[string][]report.Report{}
	for _, uc := range usecases.All {
		rep, err := report.Compile(uc.Key, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		byDept[uc.Domain] = append(byDept[uc.Domain], rep)
	}
	summary := map[string]interface{}{}
	for dept, reps := range byDept {
		var avgQuality float64
		trained := 0
		for _, rep := range reps {
			avgQuality += rep.DataQuality
			if rep.HasTraining {
				trained++
			}
		}
		if len(reps) > 0 {
			avgQuality /= float64(len(reps))
		}
		summary[dept] = map[string]interface{}{
			"use_cases":        len(reps),
			"trained_models":   trained,
			"avg_data_quality": avgQuality,
			"reports":          reps,
		}
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleCompareBusinessCase renders a lightweight cost/benefit framing
// for one use case: data readiness, model maturity, and inherent risk
// tier, the three factors the business-case narrative needs from this
// platform's own state rather than manual finance inputs.
func (s *Server) handleCompareBusinessCase(w http.ResponseWriter, r *http.Request) {
	ucID := mux.Vars(r)["uc_id"]
	uc, ok := usecases.Get(ucID)
	if !ok {
		writeError(w, apierrors.NotFound("use case %q", ucID))
		return
	}
	rep, err := report.Compile(ucID, s.Preprocessing, s.Jobs)
	if err != nil {
		writeError(w, err)
		return
	}

	readiness := "not started"
	switch {
	case rep.HasTraining:
		readiness = "model trained"
	case rep.HasPreprocessing:
		readiness = "data profiled"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"use_case":    uc,
		"readiness":   readiness,
		"risk_rating": rep.RiskRating,
		"report":      rep,
	})
}
