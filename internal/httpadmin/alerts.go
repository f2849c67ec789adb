package httpadmin

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
)

func (s *Server) registerAlertRoutes(r *mux.Router) {
	r.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	r.HandleFunc("/alerts", s.handleCreateAlert).Methods(http.MethodPost)
	r.HandleFunc("/alerts/{id}", s.handleUpdateAlert).Methods(http.MethodPut)
	r.HandleFunc("/alerts/{id}", s.handleDeleteAlert).Methods(http.MethodDelete)
	r.HandleFunc("/alerts/check", s.handleCheckAlerts).Methods(http.MethodPost)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.Alerts.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req domain.Alert
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.Metric == "" {
		writeError(w, apierrors.Validation("name and metric are required"))
		return
	}
	if req.Severity == "" {
		req.Severity = "warning"
	}
	created, err := s.Alerts.Create(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Audit.Append("create", "created alert "+created.Name, "admin", domain.AuditCreate); err != nil {
		log.Warnf("failed to append audit entry for alert creation: %v", err)
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAlert(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	existing, err := s.Alerts.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	var req domain.Alert
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.ID = existing.ID
	req.CreatedAt = existing.CreatedAt
	updated, err := s.Alerts.Create(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Alerts.Delete(existing.ID); err != nil {
		log.Warnf("failed to remove superseded alert %d: %v", existing.ID, err)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Alerts.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleCheckAlerts evaluates every enabled alert rule against the
// latest preprocessing report for its use case (or every registered use
// case, for a rule with no uc_id), stamping last_triggered on any rule
// that fires.
func (s *Server) handleCheckAlerts(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Alerts.List()
	if err != nil {
		writeError(w, err)
		return
	}

	var fired []domain.Alert
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		keys := []string{rule.UseCaseID}
		if rule.UseCaseID == "" {
			keys = usecases.Keys()
		}
		for _, key := range keys {
			rep, err := s.Preprocessing.Latest(key)
			if err != nil {
				continue
			}
			value, ok := metricFromReport(rep, rule.Metric)
			if !ok {
				continue
			}
			if rule.Evaluate(value) {
				if err := s.Alerts.MarkTriggered(rule.ID); err != nil {
					log.Warnf("failed to mark alert %d triggered: %v", rule.ID, err)
				}
				fired = append(fired, rule)
				if err := s.Audit.Append("trigger", "alert fired: "+rule.Name, "scheduler", domain.AuditWarn); err != nil {
					log.Warnf("failed to append audit entry for fired alert: %v", err)
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"fired": fired, "checked": len(rules)})
}

// metricFromReport resolves a named metric off a preprocessing report.
// Only the handful of scalar metrics alert rules are expected to
// reference are supported; anything else reports not-found.
func metricFromReport(rep domain.PreprocessingReport, metric string) (float64, bool) {
	switch metric {
	case "data_quality_score":
		return rep.DataQualityScore, true
	case "elapsed_seconds":
		return rep.ElapsedSeconds, true
	default:
		return 0, false
	}
}
