package httpadmin

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/sysmonitor"
)

func (s *Server) registerMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/monitoring/system", s.handleMonitoringSystem).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/models", s.handleMonitoringModels).Methods(http.MethodGet)
	r.HandleFunc("/monitoring/databases", s.handleMonitoringDatabases).Methods(http.MethodGet)
}

func (s *Server) handleMonitoringSystem(w http.ResponseWriter, r *http.Request) {
	snap := sysmonitor.Capture(r.Context(), s.Settings.BaseDir)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleMonitoringModels(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.Settings.ModelsDir)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"models": []string{}, "count": 0})
		return
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}

func (s *Server) handleMonitoringDatabases(w http.ResponseWriter, r *http.Request) {
	paths := map[string]string{
		"admin":         s.Settings.AdminDBPath,
		"results":       s.Settings.ResultsDBPath,
		"preprocessing": s.Settings.PreprocessingDBPath,
		"cache":         s.Settings.CacheDBPath,
		"unified":       s.Settings.UnifiedDBPath,
	}
	out := make(map[string]interface{}, len(paths))
	for name, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			out[name] = map[string]interface{}{"exists": false}
			continue
		}
		out[name] = map[string]interface{}{"exists": true, "size_bytes": info.Size()}
	}
	writeJSON(w, http.StatusOK, out)
}
