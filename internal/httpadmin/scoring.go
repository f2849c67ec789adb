package httpadmin

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/training"
)

func (s *Server) registerScoringRoutes(r *mux.Router) {
	r.HandleFunc("/scoring/score", s.handleScore).Methods(http.MethodPost)
	r.HandleFunc("/scoring/batch", s.handleScoreBatch).Methods(http.MethodPost)
	r.HandleFunc("/models", s.handleListModels).Methods(http.MethodGet)
}

type scoreRequest struct {
	ModelPath string             `json:"model_path"`
	Features  map[string]float64 `json:"features"`
}

// handleScore loads a persisted model JSON file and applies it to one
// feature row. Scoring only needs PredictProba, so the handler inspects
// the algorithm field and dispatches without re-training.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	score, algo, err := s.scoreOne(req.ModelPath, req.Features)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"score": score, "algorithm": algo})
}

type scoreBatchRequest struct {
	ModelPath string                `json:"model_path"`
	Rows      []map[string]float64  `json:"rows"`
}

func (s *Server) handleScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req scoreBatchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	scores := make([]float64, 0, len(req.Rows))
	var algo string
	for _, row := range req.Rows {
		score, a, err := s.scoreOne(req.ModelPath, row)
		if err != nil {
			writeError(w, err)
			return
		}
		algo = a
		scores = append(scores, score)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"scores": scores, "algorithm": algo})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.Settings.ModelsDir)
	if err != nil {
		writeError(w, apierrors.Data(err, "list models directory"))
		return
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": names})
}

func resolveModelPath(modelsDir, requested string) (string, error) {
	clean := filepath.Clean(requested)
	if strings.Contains(clean, "..") || filepath.IsAbs(clean) {
		return "", apierrors.Validation("invalid model path %q", requested)
	}
	return filepath.Join(modelsDir, clean), nil
}

func (s *Server) scoreOne(requestedPath string, features map[string]float64) (float64, string, error) {
	path, err := resolveModelPath(s.Settings.ModelsDir, requestedPath)
	if err != nil {
		return 0, "", err
	}
	model, err := training.LoadModel(path)
	if err != nil {
		return 0, "", err
	}
	return model.PredictProba(features), string(model.Algorithm), nil
}
