package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// RenderExcel writes a Report as a two-sheet workbook: a summary sheet
// and a per-column profile sheet, via excelize, the pack's spreadsheet
// library.
func RenderExcel(rep Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	f.SetSheetName("Sheet1", summary)

	rows := [][]interface{}{
		{"Use case", rep.UseCase.Label},
		{"Generated", rep.GeneratedAt.Format("2006-01-02 15:04 MST")},
		{"Risk rating", rep.RiskRating},
		{"Data quality", rep.DataQuality},
		{"Has training", rep.HasTraining},
		{"Accuracy", rep.Accuracy},
		{"F1", rep.F1},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, err
		}
	}

	if len(rep.ColumnProfiles) > 0 {
		const sheet = "Columns"
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		header := []interface{}{"Name", "Dtype", "Non-null", "Nulls", "Unique"}
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, err
		}
		for i, c := range rep.ColumnProfiles {
			row := []interface{}{c.Name, c.Dtype, c.NonNull, c.NullCount, c.Unique}
			cell := fmt.Sprintf("A%d", i+2)
			if err := f.SetSheetRow(sheet, cell, &row); err != nil {
				return nil, err
			}
		}
	}

	f.SetActiveSheet(0)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
