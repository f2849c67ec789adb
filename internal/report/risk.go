package report

import (
	"encoding/json"

	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/repo"
)

// SensitiveDomains are use-case domains treated as inherently high risk
// under SR 11-7 regardless of measured model quality.
var SensitiveDomains = map[string]bool{
	"fraud_detection": true,
	"aml_monitoring":  true,
}

// computeRiskRating applies the regulatory surface's documented
// thresholds: accuracy below 0.85 or data quality below 80 is high
// risk; below 0.92 or below 90 is medium; otherwise low, except that a
// sensitive domain never rates below medium.
func computeRiskRating(domainKey string, accuracy *float64, dataQuality float64) string {
	rating := "low"
	if dataQuality < 80 {
		rating = "high"
	} else if dataQuality < 90 {
		rating = "medium"
	}
	if accuracy != nil {
		if *accuracy < 0.85 {
			rating = "high"
		} else if *accuracy < 0.92 && rating != "high" {
			rating = "medium"
		}
	}
	if SensitiveDomains[domainKey] && rating == "low" {
		rating = "medium"
	}
	return rating
}

// RiskRating is the exported entry point regulatory/compare handlers
// use so the rating rule lives in exactly one place.
func RiskRating(domainKey string, accuracy *float64, dataQuality float64) string {
	return computeRiskRating(domainKey, accuracy, dataQuality)
}

// latestTrainingMetrics is a best-effort scan of the most recently
// completed training job's persisted metrics. Training jobs are not
// currently tagged with a use-case key, so this reflects the platform's
// single most recent training run rather than one scoped per use case.
func latestTrainingMetrics(jobs *repo.JobRepo) (accuracy, f1 float64, rocAUC *float64, ok bool) {
	completed, err := jobs.List(domain.JobCompleted)
	if err != nil {
		return 0, 0, nil, false
	}
	for _, j := range completed {
		if j.JobType != "training" || j.ResultJSON == "" {
			continue
		}
		var payload struct {
			Metrics struct {
				Accuracy float64  `json:"accuracy"`
				F1       float64  `json:"f1"`
				ROCAUC   *float64 `json:"roc_auc"`
			} `json:"metrics"`
		}
		if err := json.Unmarshal([]byte(j.ResultJSON), &payload); err != nil {
			continue
		}
		return payload.Metrics.Accuracy, payload.Metrics.F1, payload.Metrics.ROCAUC, true
	}
	return 0, 0, nil, false
}
