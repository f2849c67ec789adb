package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"
)

// RenderPDF lays out a Report as a single-page PDF via gofpdf, the
// pack's PDF library — the most direct ecosystem match for the
// document-export surface.
func RenderPDF(rep Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, rep.UseCase.Label, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Generated "+rep.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Risk rating: %s", rep.RiskRating), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Data Quality", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if rep.HasPreprocessing {
		pdf.CellFormat(0, 6, fmt.Sprintf("Score: %.1f, columns profiled: %d", rep.DataQuality, len(rep.ColumnProfiles)), "", 1, "L", false, 0, "")
	} else {
		pdf.CellFormat(0, 6, "Not yet profiled.", "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Model Performance", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if rep.HasTraining {
		line := fmt.Sprintf("Accuracy: %.3f, F1: %.3f", rep.Accuracy, rep.F1)
		if rep.ROCAUC != nil {
			line += fmt.Sprintf(", ROC-AUC: %.3f", *rep.ROCAUC)
		}
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	} else {
		pdf.CellFormat(0, 6, "No model trained yet.", "", 1, "L", false, 0, "")
	}

	if len(rep.FeatureSuggestions) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Feature Engineering Suggestions", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		for _, sug := range rep.FeatureSuggestions {
			pdf.CellFormat(0, 6, "- "+sug, "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
