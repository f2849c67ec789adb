package httpadmin

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	redis "github.com/redis/go-redis/v9"

	nc "github.com/nats-io/nats.go"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

func integrationStatusFrom(status string) domain.IntegrationStatus {
	if status == "connected" {
		return domain.IntegrationConnected
	}
	return domain.IntegrationDisconnected
}

const integrationTestTimeout = 5 * time.Second

func (s *Server) registerIntegrationRoutes(r *mux.Router) {
	r.HandleFunc("/integrations", s.handleListIntegrations).Methods(http.MethodGet)
	r.HandleFunc("/integrations", s.handleCreateIntegration).Methods(http.MethodPost)
	r.HandleFunc("/integrations/{id}", s.handleGetIntegration).Methods(http.MethodGet)
	r.HandleFunc("/integrations/{id}/test", s.handleTestIntegration).Methods(http.MethodPost)
}

func (s *Server) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	integrations, err := s.Integrations.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, integrations)
}

type createIntegrationRequest struct {
	Name   string                 `json:"name"`
	Config map[string]interface{} `json:"config"`
}

func (s *Server) handleCreateIntegration(w http.ResponseWriter, r *http.Request) {
	var req createIntegrationRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, apierrors.Validation("name is required"))
		return
	}
	in, err := s.Integrations.Create(req.Name, req.Config)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	in, err := s.Integrations.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

// handleTestIntegration performs a real reachability probe against the
// integration's backing service (pg, redis, nats, or generic HTTP REST),
// bounded by a 5s timeout, and records the resulting status.
func (s *Server) handleTestIntegration(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	in, err := s.Integrations.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	var cfg map[string]interface{}
	if err := json.Unmarshal([]byte(in.ConfigJSON), &cfg); err != nil {
		writeError(w, apierrors.Data(err, "parse integration config"))
		return
	}
	kind, _ := cfg["type"].(string)

	ctx, cancel := context.WithTimeout(r.Context(), integrationTestTimeout)
	defer cancel()

	start := time.Now()
	testErr := probeIntegration(ctx, kind, cfg)
	latency := time.Since(start)

	status := "connected"
	if testErr != nil {
		status = "disconnected"
	}
	if err := s.Integrations.UpdateStatus(id, integrationStatusFrom(status)); err != nil {
		log.Warnf("failed to update integration %s status: %v", id, err)
	}

	resp := map[string]interface{}{
		"id":         id,
		"status":     status,
		"latency_ms": latency.Milliseconds(),
	}
	if testErr != nil {
		resp["error"] = testErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func probeIntegration(ctx context.Context, kind string, cfg map[string]interface{}) error {
	switch kind {
	case "pg", "postgres":
		host, _ := cfg["host"].(string)
		port, _ := cfg["port"].(string)
		if host == "" {
			host = "localhost"
		}
		if port == "" {
			port = "5432"
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
		if err != nil {
			return apierrors.ExternalService(err, "postgres connection failed")
		}
		return conn.Close()
	case "redis":
		url, _ := cfg["url"].(string)
		if url == "" {
			url = "redis://localhost:6379"
		}
		opts, err := redis.ParseURL(url)
		if err != nil {
			return apierrors.ExternalService(err, "invalid redis url")
		}
		client := redis.NewClient(opts)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return apierrors.ExternalService(err, "redis ping failed")
		}
		return nil
	case "nats":
		url, _ := cfg["url"].(string)
		if url == "" {
			url = nc.DefaultURL
		}
		conn, err := nc.Connect(url, nc.Timeout(integrationTestTimeout))
		if err != nil {
			return apierrors.ExternalService(err, "nats connection failed")
		}
		conn.Close()
		return nil
	case "http", "rest":
		url, _ := cfg["url"].(string)
		if url == "" {
			return apierrors.Validation("http integration requires a url")
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return apierrors.Validation("invalid integration url")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return apierrors.ExternalService(err, "http probe failed")
		}
		resp.Body.Close()
		return nil
	default:
		return apierrors.Validation("unknown integration type %q", kind)
	}
}
