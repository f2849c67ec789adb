package httpadmin

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

func (s *Server) registerLogRoutes(r *mux.Router) {
	r.HandleFunc("/logs", s.handleLogs).Methods(http.MethodGet)
}

// handleLogs reads a log file inside the logs directory, optionally
// filtering by level/search substring and capping the number of lines
// returned. Any path that resolves outside the logs directory is
// rejected before the file is ever opened.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	file := q.Get("file")
	if file == "" {
		file = "app.log"
	}
	level := strings.ToUpper(q.Get("level"))
	search := q.Get("search")
	limit := 200
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	path, err := safeLogPath(s.Settings.LogsDir, file)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		writeError(w, apierrors.NotFound("log file %q", file))
		return
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if level != "" && !strings.Contains(strings.ToUpper(line), level) {
			continue
		}
		if search != "" && !strings.Contains(line, search) {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		log.Warnf("log scan error for %s: %v", path, err)
	}

	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lines": lines})
}

// safeLogPath resolves requested within dir and rejects any result that
// escapes dir after resolution, defending against path traversal
// (../../etc/passwd) and absolute-path overrides.
func safeLogPath(dir, requested string) (string, error) {
	clean := filepath.Clean(requested)
	if filepath.IsAbs(clean) {
		return "", apierrors.Validation("invalid log file path %q", requested)
	}
	joined := filepath.Join(dir, clean)

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", apierrors.Data(err, "resolve logs directory")
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", apierrors.Data(err, "resolve log file path")
	}
	if absJoined != absDir && !strings.HasPrefix(absJoined, absDir+string(filepath.Separator)) {
		return "", apierrors.Validation("log file path escapes logs directory")
	}
	return absJoined, nil
}
