package httpadmin

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

var forbiddenSQLKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "TRUNCATE", "EXEC", "GRANT", "REVOKE",
}

const text2sqlExecuteTimeout = 30 * time.Second
const text2sqlRowCap = 1000

func (s *Server) registerText2SQLRoutes(r *mux.Router) {
	r.HandleFunc("/text2sql/schema", s.handleText2SQLSchema).Methods(http.MethodGet)
	r.HandleFunc("/text2sql/generate", s.handleText2SQLGenerate).Methods(http.MethodPost)
	r.HandleFunc("/text2sql/execute", s.handleText2SQLExecute).Methods(http.MethodPost)
}

func (s *Server) handleText2SQLSchema(w http.ResponseWriter, r *http.Request) {
	rows, err := s.AdminDB.Query(`SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	if err != nil {
		writeError(w, apierrors.Data(err, "read schema"))
		return
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tables": tables})
}

type text2sqlGenerateRequest struct {
	NaturalLanguage string `json:"natural_language"`
}

// handleText2SQLGenerate asks the configured LLM endpoint to translate a
// natural-language request into a SELECT statement. If the LLM is
// unreachable, it falls back to a best-effort heuristic query over the
// most plausible table — callers should treat the fallback as
// best-effort, not authoritative.
func (s *Server) handleText2SQLGenerate(w http.ResponseWriter, r *http.Request) {
	var req text2sqlGenerateRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sqlText, err := s.generateSQL(r.Context(), req.NaturalLanguage)
	if err != nil {
		sqlText = heuristicSQL(req.NaturalLanguage)
	}
	if _, err := s.Text2SQL.Record(domain.Text2SQLHistory{NaturalLanguage: req.NaturalLanguage, GeneratedSQL: sqlText}); err != nil {
		log.Warnf("failed to record text2sql history: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"sql": sqlText})
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (s *Server) generateSQL(ctx context.Context, naturalLanguage string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate this request into a single read-only SQL SELECT statement against tables "+
			"datasets, jobs, alerts, integrations. Respond with SQL only.\nRequest: %s", naturalLanguage)

	body, err := json.Marshal(ollamaGenerateRequest{Model: s.Settings.OllamaModel, Prompt: prompt, Stream: false})
	if err != nil {
		return "", apierrors.Model(err, "marshal text2sql prompt")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Settings.OllamaBaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", apierrors.ExternalService(err, "build text2sql request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: text2sqlExecuteTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", apierrors.ExternalService(err, "text2sql LLM unreachable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apierrors.ExternalService(nil, "text2sql LLM returned status %d", resp.StatusCode)
	}

	var out ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apierrors.ExternalService(err, "decode text2sql LLM response")
	}
	return strings.TrimSpace(out.Response), nil
}

func heuristicSQL(naturalLanguage string) string {
	lower := strings.ToLower(naturalLanguage)
	switch {
	case strings.Contains(lower, "job"):
		return "SELECT * FROM jobs ORDER BY created_at DESC LIMIT 10"
	case strings.Contains(lower, "alert"):
		return "SELECT * FROM alerts LIMIT 10"
	case strings.Contains(lower, "integration"):
		return "SELECT * FROM integrations LIMIT 10"
	default:
		return "SELECT * FROM datasets ORDER BY created_at DESC LIMIT 10"
	}
}

type text2sqlExecuteRequest struct {
	SQL string `json:"sql"`
}

// handleText2SQLExecute enforces the read-only gate: the normalized
// statement must start with SELECT and must not contain any forbidden
// keyword, then runs against a read-only connection capped at 1000 rows.
func (s *Server) handleText2SQLExecute(w http.ResponseWriter, r *http.Request) {
	var req text2sqlExecuteRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	normalized := strings.TrimSpace(req.SQL)
	upper := strings.ToUpper(normalized)
	if !strings.HasPrefix(upper, "SELECT") {
		writeError(w, apierrors.Validation("only SELECT statements are permitted"))
		return
	}
	for _, kw := range forbiddenSQLKeywords {
		if strings.Contains(upper, kw) {
			writeError(w, apierrors.Validation("statement contains forbidden keyword %s", kw))
			return
		}
	}

	roDB, err := sql.Open("sqlite", "file:"+s.Settings.AdminDBPath+"?mode=ro&_pragma=query_only(1)")
	if err != nil {
		writeError(w, apierrors.Data(err, "open read-only admin database"))
		return
	}
	defer roDB.Close()

	ctx, cancel := context.WithTimeout(r.Context(), text2sqlExecuteTimeout)
	defer cancel()

	rows, err := roDB.QueryContext(ctx, normalized)
	if err != nil {
		writeError(w, apierrors.Data(err, "execute text2sql statement"))
		return
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		writeError(w, apierrors.Data(err, "read result columns"))
		return
	}

	var results []map[string]interface{}
	hasMore := false
	for rows.Next() {
		if len(results) >= text2sqlRowCap {
			hasMore = true
			break
		}
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			writeError(w, apierrors.Data(err, "scan result row"))
			return
		}
		row := make(map[string]interface{}, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		results = append(results, row)
	}

	if _, err := s.Text2SQL.Record(domain.Text2SQLHistory{GeneratedSQL: normalized, Executed: true, RowCount: len(results)}); err != nil {
		log.Warnf("failed to record text2sql execution: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": results, "has_more": hasMore})
}
