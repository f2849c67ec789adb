// Package httpadmin implements the admin HTTP surface: dependency-injected
// Server, middleware chain, and the full router surface described by the
// platform's external interface. Grounded on the corpus's dependency-
// injected Server struct and header-wrapping middleware chain style, with
// gorilla/mux as the router.
package httpadmin

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/cache"
	"github.com/antigravity-dev/banking-platform/internal/cipher"
	"github.com/antigravity-dev/banking-platform/internal/config"
	"github.com/antigravity-dev/banking-platform/internal/events"
	"github.com/antigravity-dev/banking-platform/internal/logging"
	"github.com/antigravity-dev/banking-platform/internal/rag"
	"github.com/antigravity-dev/banking-platform/internal/repo"
	"github.com/antigravity-dev/banking-platform/internal/scheduler"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
	"github.com/antigravity-dev/banking-platform/internal/vectorstore"
)

var log = logging.For("httpadmin")

// Server bundles every repository, service, and cross-cutting dependency
// the admin HTTP surface needs. It holds no package-level state; every
// handler closes over this struct via method receivers.
type Server struct {
	Settings *config.Settings
	Cipher   *cipher.Cipher
	AdminDB  *sql.DB

	Datasets       *repo.DatasetRepo
	Jobs           *repo.JobRepo
	Alerts         *repo.AlertRepo
	Audit          *repo.AuditRepo
	Integrations   *repo.IntegrationRepo
	Text2SQL       *repo.Text2SQLRepo
	Governance     *repo.GovernanceRepo
	Preprocessing  *repo.PreprocessingRepo
	QueryCache     *cache.Cache
	EmbeddingCache *cache.Cache
	Vectors        vectorstore.Store
	RAG            *rag.Pipeline
	Scheduler      *scheduler.Scheduler
	Bus            *events.Bus

	rateLimiter *ipRateLimiter
	startedAt   time.Time
}

// NewServer wires a Server from its dependencies. Settings is required;
// every other field may be left nil in tests that only exercise a subset
// of handlers.
func NewServer(settings *config.Settings) *Server {
	return &Server{
		Settings:    settings,
		rateLimiter: newIPRateLimiter(settings.RateLimitPerMin, time.Minute),
		startedAt:   time.Now().UTC(),
	}
}

// Router builds the full gorilla/mux router with the middleware chain
// applied outermost-first: correlation ID, security headers, CORS, rate
// limiter (admin routes only), API-key auth (admin routes only).
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/departments", s.handleDepartments).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin").Subrouter()
	s.registerDatasetRoutes(admin)
	s.registerStatsRoutes(admin)
	s.registerScoringRoutes(admin)
	s.registerTrainingRoutes(admin)
	s.registerIntegrationRoutes(admin)
	s.registerMonitoringRoutes(admin)
	s.registerJobRoutes(admin)
	s.registerVectorDBRoutes(admin)
	s.registerText2SQLRoutes(admin)
	s.registerLogRoutes(admin)
	s.registerAlertRoutes(admin)
	s.registerProcessRoutes(admin)
	s.registerExportRoutes(admin)
	s.registerRegulatoryRoutes(admin)
	s.registerCompareRoutes(admin)

	var h http.Handler = r
	h = s.withAPIKeyAuth(h)
	h = s.withRateLimit(h)
	h = s.withCORS(h)
	h = s.withSecurityHeaders(h)
	h = s.withCorrelationID(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *Server) handleDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]string{
		{"key": "credit_risk", "label": "Credit Risk"},
		{"key": "fraud_detection", "label": "Fraud Detection"},
		{"key": "aml_monitoring", "label": "AML Monitoring"},
	})
}

// useCasesByDepartment groups the registered use-case catalog under the
// three department keys handleDepartments advertises.
func useCasesByDepartment() map[string][]string {
	out := map[string][]string{"credit_risk": {}, "fraud_detection": {}, "aml_monitoring": {}}
	for _, uc := range usecases.All {
		out[uc.Domain] = append(out[uc.Domain], uc.Key)
	}
	return out
}

// isPublicPath reports whether a request path bypasses API-key auth.
func isPublicPath(path string) bool {
	switch path {
	case "/api/health", "/api/departments", "/docs", "/openapi.json":
		return true
	}
	return false
}

func isAdminPath(path string) bool {
	return len(path) >= len("/api/admin") && path[:len("/api/admin")] == "/api/admin"
}

// correlationIDFromRequest returns the context carried through a request,
// used by handlers that need to log with the request's correlation ID.
func correlationIDFromRequest(r *http.Request) context.Context {
	return r.Context()
}
