package httpadmin

import (
	"archive/zip"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
	"github.com/antigravity-dev/banking-platform/internal/report"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
)

func (s *Server) registerExportRoutes(r *mux.Router) {
	r.HandleFunc("/export/pdf/{uc_id}", s.handleExport("pdf")).Methods(http.MethodPost)
	r.HandleFunc("/export/excel/{uc_id}", s.handleExport("excel")).Methods(http.MethodPost)
	r.HandleFunc("/export/word/{uc_id}", s.handleExport("word")).Methods(http.MethodPost)
	r.HandleFunc("/export/markdown/{uc_id}", s.handleExport("markdown")).Methods(http.MethodPost)
	r.HandleFunc("/export/pptx/{uc_id}", s.handleExport("pptx")).Methods(http.MethodPost)
	r.HandleFunc("/export/executive-summary", s.handleExportExecutiveSummary).Methods(http.MethodPost)
	r.HandleFunc("/export/batch", s.handleExportBatch).Methods(http.MethodPost)
}

// exportFormats maps a format key to its content type, file extension,
// and renderer, shared by the per-use-case export route and the batch
// export route.
var exportFormats = map[string]struct {
	contentType string
	ext         string
	render      func(report.Report) ([]byte, error)
}{
	"pdf":      {"application/pdf", "pdf", report.RenderPDF},
	"excel":    {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", report.RenderExcel},
	"word":     {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx", report.RenderWord},
	"pptx":     {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "pptx", report.RenderPPTX},
	"markdown": {"text/markdown", "md", func(r report.Report) ([]byte, error) { return report.RenderMarkdown(r), nil }},
}

func (s *Server) handleExport(format string) http.HandlerFunc {
	spec := exportFormats[format]
	return func(w http.ResponseWriter, r *http.Request) {
		ucID := mux.Vars(r)["uc_id"]
		if _, ok := usecases.Get(ucID); !ok {
			writeError(w, apierrors.NotFound("use case %q", ucID))
			return
		}
		rep, err := report.Compile(ucID, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		data, err := spec.render(rep)
		if err != nil {
			writeError(w, apierrors.Model(err, "render %s export", format))
			return
		}
		w.Header().Set("Content-Type", spec.contentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, ucID, spec.ext))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// handleExportExecutiveSummary renders a single Markdown document
// covering every registered use case, for stakeholders who want the
// portfolio view rather than one report at a time.
func (s *Server) handleExportExecutiveSummary(w http.ResponseWriter, r *http.Request) {
	var combined []byte
	combined = append(combined, []byte("# Executive Summary\n\n")...)
	for _, uc := range usecases.All {
		rep, err := report.Compile(uc.Key, s.Preprocessing, s.Jobs)
		if err != nil {
			writeError(w, err)
			return
		}
		combined = append(combined, report.RenderMarkdown(rep)...)
		combined = append(combined, []byte("\n---\n\n")...)
	}
	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", `attachment; filename="executive-summary.md"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(combined)
}

type exportBatchRequest struct {
	Format   string   `json:"format"`
	UseCases []string `json:"use_cases"`
}

// handleExportBatch renders one file per requested use case in the
// given format and returns them bundled as a zip archive.
func (s *Server) handleExportBatch(w http.ResponseWriter, r *http.Request) {
	var req exportBatchRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	spec, ok := exportFormats[req.Format]
	if !ok {
		writeError(w, apierrors.Validation("unknown export format %q", req.Format))
		return
	}
	keys := req.UseCases
	if len(keys) == 0 {
		keys = usecases.Keys()
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="export-batch.zip"`)
	w.WriteHeader(http.StatusOK)

	zw := zip.NewWriter(w)
	defer zw.Close()

	for _, key := range keys {
		if _, ok := usecases.Get(key); !ok {
			continue
		}
		rep, err := report.Compile(key, s.Preprocessing, s.Jobs)
		if err != nil {
			log.Warnf("failed to compile report for %s in batch export: %v", key, err)
			continue
		}
		data, err := spec.render(rep)
		if err != nil {
			log.Warnf("failed to render %s export for %s: %v", req.Format, key, err)
			continue
		}
		entry, err := zw.Create(fmt.Sprintf("%s.%s", key, spec.ext))
		if err != nil {
			log.Warnf("failed to add %s to batch export zip: %v", key, err)
			continue
		}
		if _, err := entry.Write(data); err != nil {
			log.Warnf("failed to write %s to batch export zip: %v", key, err)
		}
	}
}
