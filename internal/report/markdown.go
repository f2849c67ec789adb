package report

import (
	"bytes"
	"fmt"
)

// RenderMarkdown writes a plain-text Markdown rendering of a Report,
// the lowest-common-denominator export format. The other renderers
// build their output from the Report directly, not from this text.
func RenderMarkdown(rep Report) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", rep.UseCase.Label)
	fmt.Fprintf(&buf, "_Generated %s_\n\n", rep.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&buf, "**Risk rating:** %s\n\n", rep.RiskRating)

	buf.WriteString("## Data Quality\n\n")
	if rep.HasPreprocessing {
		fmt.Fprintf(&buf, "Data quality score: **%.1f**\n\n", rep.DataQuality)
		if len(rep.ColumnProfiles) > 0 {
			buf.WriteString("| Column | Dtype | Nulls | Unique |\n|---|---|---|---|\n")
			for _, c := range rep.ColumnProfiles {
				fmt.Fprintf(&buf, "| %s | %s | %d | %d |\n", c.Name, c.Dtype, c.NullCount, c.Unique)
			}
			buf.WriteString("\n")
		}
	} else {
		buf.WriteString("_Not yet profiled._\n\n")
	}

	buf.WriteString("## Model Performance\n\n")
	if rep.HasTraining {
		fmt.Fprintf(&buf, "Accuracy: **%.3f**, F1: **%.3f**", rep.Accuracy, rep.F1)
		if rep.ROCAUC != nil {
			fmt.Fprintf(&buf, ", ROC-AUC: **%.3f**", *rep.ROCAUC)
		}
		buf.WriteString("\n\n")
	} else {
		buf.WriteString("_No model trained yet._\n\n")
	}

	if len(rep.FeatureSuggestions) > 0 {
		buf.WriteString("## Feature Engineering Suggestions\n\n")
		for _, sug := range rep.FeatureSuggestions {
			fmt.Fprintf(&buf, "- %s\n", sug)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}
