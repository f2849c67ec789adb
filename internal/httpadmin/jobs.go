package httpadmin

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

func (s *Server) registerJobRoutes(r *mux.Router) {
	r.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id:[0-9]+}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id:[0-9]+}/cancel", s.handleCancelJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs/stream", s.handleJobsStream).Methods(http.MethodGet)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := domain.JobStatus(r.URL.Query().Get("status"))
	jobs, err := s.Jobs.List(status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	job, err := s.Jobs.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Jobs.Cancel(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

var jobsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleJobsStream upgrades to a websocket connection and replays every
// job/subtask transition published on the event bus until the client
// disconnects. This is a status push, not a data-plane stream.
func (s *Server) handleJobsStream(w http.ResponseWriter, r *http.Request) {
	if s.Bus == nil {
		writeError(w, apierrors.ExternalService(nil, "event bus unavailable"))
		return
	}
	conn, err := jobsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, unsubscribe := s.Bus.Subscribe(32)
	defer unsubscribe()

	conn.SetReadDeadline(time.Now().Add(24 * time.Hour))
	go drainClientMessages(conn)

	for t := range ch {
		if err := conn.WriteJSON(t); err != nil {
			return
		}
	}
}

// drainClientMessages discards inbound frames (this is a push-only
// stream) and exits on disconnect, giving the upgrader's ping/pong loop
// somewhere to run.
func drainClientMessages(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
