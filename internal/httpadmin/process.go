package httpadmin

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
)

func (s *Server) registerProcessRoutes(r *mux.Router) {
	r.HandleFunc("/process/run", s.handleProcessRun).Methods(http.MethodPost)
}

type processRunRequest struct {
	UseCaseKey string `json:"use_case_key"`
}

// handleProcessRun creates a job row for the requested use case (or
// "all" if none is given) and dispatches it to the scheduler's bounded
// worker pool, returning immediately with the job IDs to poll via
// GET /api/admin/jobs/{id}.
func (s *Server) handleProcessRun(w http.ResponseWriter, r *http.Request) {
	var req processRunRequest
	_ = decodeJSONBody(r, &req)

	keys := usecases.Keys()
	if req.UseCaseKey != "" {
		if _, ok := usecases.Get(req.UseCaseKey); !ok {
			writeError(w, apierrors.Validation("unknown use case %q", req.UseCaseKey))
			return
		}
		keys = []string{req.UseCaseKey}
	}

	if s.Scheduler == nil {
		writeError(w, apierrors.Model(nil, "scheduler is not configured"))
		return
	}

	var jobIDs []int64
	for _, key := range keys {
		cfg, _ := json.Marshal(map[string]string{"use_case_key": key})
		job, err := s.Jobs.Create("pipeline", string(cfg))
		if err != nil {
			writeError(w, err)
			return
		}
		jobIDs = append(jobIDs, job.ID)
		go func(useCaseKey string, jobID int64) {
			s.Scheduler.RunUseCase(context.Background(), useCaseKey, jobID)
		}(key, job.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{"job_ids": jobIDs})
}
