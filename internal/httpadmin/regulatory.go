package httpadmin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/report"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
)

func (s *Server) registerRegulatoryRoutes(r *mux.Router) {
	r.HandleFunc("/regulatory/sr11-7/{uc_id}", s.handleSR117).Methods(http.MethodGet)
	r.HandleFunc("/regulatory/model-inventory", s.handleModelInventory).Methods(http.MethodGet)
	r.HandleFunc("/regulatory/compliance-summary", s.handleComplianceSummary).Methods(http.MethodGet)
}

func (s *Server) handleSR117(w http.ResponseWriter, r *http.Request) {
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

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"use_case":          uc,
		"risk_rating":       rep.RiskRating,
		"data_quality":      rep.DataQuality,
		"has_report":        rep.HasPreprocessing,
		"has_training":      rep.HasTraining,
		"accuracy":          rep.Accuracy,
		"sensitive_domain":  report.SensitiveDomains[uc.Domain],
		"reviewed_controls": []string{"conceptual_soundness", "outcomes_analysis", "ongoing_monitoring"},
	})
}

func (s *Server) handleModelInventory(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		UseCase     domain.UseCase `json:"use_case"`
		HasReport   bool           `json:"has_report"`
		DataQuality float64        `json:"data_quality"`
		HasTraining bool           `json:"has_training"`
		Accuracy    float64        `json:"accuracy,omitempty"`
		RiskRating  string         `json:"risk_rating"`
	}
	var out []entry
	for _, uc := range usecases.All {
		rep, err := report.Compile(uc.Key, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, entry{
			UseCase: uc, HasReport: rep.HasPreprocessing, DataQuality: rep.DataQuality,
			HasTraining: rep.HasTraining, Accuracy: rep.Accuracy, RiskRating: rep.RiskRating,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleComplianceSummary(w http.ResponseWriter, r *http.Request) {
	counts := map[string]int{"high": 0, "medium": 0, "low": 0}
	for _, uc := range usecases.All {
		rep, err := report.Compile(uc.Key, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		counts[rep.RiskRating]++
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"by_risk_tier": counts, "total_use_cases": len(usecases.All)})
}
