package report

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
)

// RenderWord writes a Report as a minimal valid .docx: one
// word/document.xml body built from the Report's fields, zipped with
// the content-types and relationship parts Word requires to open it.
//
// The pack's only Word-format library expects an existing .docx
// template to do text replacement against (it has no from-scratch
// writer), and this platform ships no template asset, so this builds
// the OOXML package directly, as RenderPPTX does for PowerPoint.
func RenderWord(rep Report) ([]byte, error) {
	var body bytes.Buffer
	writeDocxParagraph(&body, rep.UseCase.Label, true)
	writeDocxParagraph(&body, "Generated "+rep.GeneratedAt.Format("2006-01-02 15:04 MST"), false)
	writeDocxParagraph(&body, fmt.Sprintf("Risk rating: %s", rep.RiskRating), false)

	writeDocxParagraph(&body, "Data Quality", true)
	if rep.HasPreprocessing {
		writeDocxParagraph(&body, fmt.Sprintf("Score: %.1f, columns profiled: %d", rep.DataQuality, len(rep.ColumnProfiles)), false)
	} else {
		writeDocxParagraph(&body, "Not yet profiled.", false)
	}

	writeDocxParagraph(&body, "Model Performance", true)
	if rep.HasTraining {
		line := fmt.Sprintf("Accuracy: %.3f, F1: %.3f", rep.Accuracy, rep.F1)
		if rep.ROCAUC != nil {
			line += fmt.Sprintf(", ROC-AUC: %.3f", *rep.ROCAUC)
		}
		writeDocxParagraph(&body, line, false)
	} else {
		writeDocxParagraph(&body, "No model trained yet.", false)
	}

	for _, sug := range rep.FeatureSuggestions {
		writeDocxParagraph(&body, "- "+sug, false)
	}

	documentXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>` + body.String() + `<w:sectPr/></w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`,
		"_rels/.rels": `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`,
		"word/document.xml": documentXML,
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeDocxParagraph(buf *bytes.Buffer, text string, bold bool) {
	runProps := ""
	if bold {
		runProps = "<w:rPr><w:b/></w:rPr>"
	}
	fmt.Fprintf(buf, `<w:p><w:r>%s<w:t xml:space="preserve">%s</w:t></w:r></w:p>`, runProps, html.EscapeString(text))
}
