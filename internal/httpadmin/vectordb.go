package httpadmin

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) registerVectorDBRoutes(r *mux.Router) {
	r.HandleFunc("/vectordb", s.handleVectorDBOverview).Methods(http.MethodGet)
	r.HandleFunc("/chunking", s.handleChunkingOverview).Methods(http.MethodGet)
}

func (s *Server) handleVectorDBOverview(w http.ResponseWriter, r *http.Request) {
	if s.Vectors == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"collections": []string{}})
		return
	}
	collections, err := s.Vectors.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	stats := make(map[string]interface{}, len(collections))
	for _, c := range collections {
		st, err := s.Vectors.GetStats(r.Context(), c)
		if err != nil {
			log.Warnf("failed to read stats for collection %s: %v", c, err)
			continue
		}
		stats[c] = st
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"collections": collections, "stats": stats})
}

func (s *Server) handleChunkingOverview(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.Governance.RecentVectorDBJobs(20)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"vector_db_jobs": jobs})
}
