package httpadmin

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/training"
)

func (s *Server) registerTrainingRoutes(r *mux.Router) {
	r.HandleFunc("/training/start", s.handleTrainingStart).Methods(http.MethodPost)
	r.HandleFunc("/training/jobs/{id:[0-9]+}", s.handleGetJob).Methods(http.MethodGet)
}

type trainingStartRequest struct {
	DatasetID     int64             `json:"dataset_id"`
	Algorithm     training.Algorithm `json:"algorithm"`
	TargetColumn  string            `json:"target_column"`
	TestSize      float64           `json:"test_size"`
}

// handleTrainingStart queues a training job row and runs it on a
// detached goroutine, polled via GET .../training/jobs/{id}. Stages run
// inside one worker; cancellation is observed only between stages.
func (s *Server) handleTrainingStart(w http.ResponseWriter, r *http.Request) {
	var req trainingStartRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ds, err := s.Datasets.Get(req.DatasetID)
	if err != nil {
		writeError(w, err)
		return
	}

	cfg := training.DefaultConfig(req.Algorithm)
	if req.TestSize > 0 {
		cfg.TestSize = req.TestSize
	}
	configJSON, _ := json.Marshal(req)

	job, err := s.Jobs.Create("training", string(configJSON))
	if err != nil {
		writeError(w, err)
		return
	}

	go s.runTrainingJob(job.ID, ds.FilePath, req.TargetColumn, cfg)

	writeJSON(w, http.StatusOK, map[string]interface{}{"job_id": job.ID})
}

func (s *Server) runTrainingJob(jobID int64, datasetPath, targetColumn string, cfg training.Config) {
	if err := s.Jobs.UpdateStatus(jobID, domain.JobRunning); err != nil {
		log.Errorf(err, "failed to mark training job %d running", jobID)
	}
	cancelled := func() bool {
		j, err := s.Jobs.Get(jobID)
		return err == nil && j.Status == domain.JobCancelled
	}

	rows, header, err := loadCSVRows(datasetPath)
	if err != nil {
		s.failJob(jobID, err)
		return
	}
	frame, err := training.BuildFrame(rows, header, targetColumn)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	if err := s.Jobs.UpdateProgress(jobID, 30); err != nil {
		log.Warnf("failed to update progress for job %d: %v", jobID, err)
	}
	if cancelled() {
		return
	}

	result, err := training.Train(frame, 0, cfg, jobID, s.Settings.ModelsDir)
	if err != nil {
		s.failJob(jobID, err)
		return
	}

	if err := s.Jobs.UpdateProgress(jobID, 70); err != nil {
		log.Warnf("failed to update progress for job %d: %v", jobID, err)
	}
	if cancelled() {
		return
	}

	resultJSON, err := json.Marshal(map[string]interface{}{
		"algorithm":  result.Algorithm,
		"model_path": result.ModelPath,
		"metrics":    result.Metrics,
	})
	if err != nil {
		s.failJob(jobID, apierrors.Model(err, "marshal training result"))
		return
	}
	if err := s.Jobs.UpdateResult(jobID, string(resultJSON)); err != nil {
		log.Errorf(err, "failed to finalize training job %d", jobID)
	}
}

func (s *Server) failJob(jobID int64, err error) {
	log.Errorf(err, "training job %d failed", jobID)
	if ferr := s.Jobs.Fail(jobID, err.Error()); ferr != nil {
		log.Errorf(ferr, "failed to record failure for job %d", jobID)
	}
}
