package httpadmin

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

func (s *Server) registerDatasetRoutes(r *mux.Router) {
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/datasets", s.handleListDatasets).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{id}", s.handleGetDataset).Methods(http.MethodGet)
	r.HandleFunc("/datasets/{id}", s.handleDeleteDataset).Methods(http.MethodDelete)
}

// handleUpload accepts a multipart file upload, enforces the extension
// allowlist and max-upload-size limit, persists it under uploads/, and
// profiles it into a Dataset row.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Settings.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, apierrors.Validation("upload too large or malformed: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, apierrors.Validation("missing file field"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !s.Settings.AllowedExtension[ext] {
		writeError(w, apierrors.Validation("file extension %q not allowed", ext))
		return
	}

	safeName := sanitizeFilename(header.Filename)
	stored := fmt.Sprintf("%d_%s", time.Now().UTC().UnixNano(), safeName)
	destPath := filepath.Join(s.Settings.UploadsDir, stored)

	dest, err := os.Create(destPath)
	if err != nil {
		writeError(w, apierrors.Data(err, "create upload destination"))
		return
	}
	size, err := io.Copy(dest, file)
	dest.Close()
	if err != nil {
		writeError(w, apierrors.Data(err, "write upload"))
		return
	}

	rows, columns, err := loadCSVRows(destPath)
	if err != nil {
		writeError(w, err)
		return
	}

	ds := domain.Dataset{
		Name:             strings.TrimSuffix(safeName, ext),
		OriginalFilename: header.Filename,
		FilePath:         destPath,
		FileSize:         size,
		Rows:             len(rows),
		Cols:             len(columns),
		Columns:          profileColumns(rows, columns),
	}
	created, err := s.Datasets.Create(ds)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Audit.Append("upload", fmt.Sprintf("uploaded dataset %s", created.Name), "admin", domain.AuditCreate); err != nil {
		log.Warnf("failed to append audit entry: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":   created.ID,
		"rows": created.Rows,
		"cols": created.Cols,
		"name": created.Name,
	})
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "upload"
	}
	return b.String()
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := s.Datasets.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasets)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	ds, err := s.Datasets.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleDeleteDataset(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Datasets.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	if err := s.Audit.Append("delete", fmt.Sprintf("deleted dataset %d", id), "admin", domain.AuditDelete); err != nil {
		log.Warnf("failed to append audit entry: %v", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apierrors.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}
