// Package report compiles a per-use-case reporting artifact out of
// whatever state the platform has produced so far — a preprocessing
// report, a trained model's metrics, a risk rating — and renders it to
// the formats the admin export surface serves. Grounded on the
// preprocessing repository's "latest, tolerate not-found" read style:
// compilation never fails because one contributing artifact is
// missing, it just renders that section as not yet available.
package report

import (
	"time"

	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/repo"
	"github.com/antigravity-dev/banking-platform/internal/usecases"
)

// Report is the merged view of one use case's state, assembled from
// whichever of its contributing artifacts exist.
type Report struct {
	UseCase            domain.UseCase
	GeneratedAt         time.Time
	HasPreprocessing    bool
	DataQuality         float64
	ColumnProfiles      []domain.ColumnProfile
	CorrelationTopPairs []domain.CorrelationPair
	TargetDistribution  map[string]int
	FeatureSuggestions  []string
	HasTraining         bool
	Accuracy            float64
	F1                  float64
	ROCAUC              *float64
	RiskRating          string
}

// Compile merges the latest preprocessing report and the most recent
// completed training job's metrics for a use case. Either source may be
// absent; the corresponding Report fields are left at their zero value
// and the matching Has* flag stays false.
func Compile(ucKey string, prep *repo.PreprocessingRepo, jobs *repo.JobRepo) (Report, error) {
	uc, ok := usecases.Get(ucKey)
	if !ok {
		uc = domain.UseCase{Key: ucKey, Label: ucKey}
	}
	rep := Report{UseCase: uc, GeneratedAt: time.Now().UTC()}

	if prep != nil {
		if pr, err := prep.Latest(ucKey); err == nil {
			rep.HasPreprocessing = true
			rep.DataQuality = pr.DataQualityScore
			rep.ColumnProfiles = pr.ColumnProfiles
			rep.CorrelationTopPairs = pr.CorrelationTopPairs
			rep.TargetDistribution = pr.TargetDistribution
			rep.FeatureSuggestions = pr.FeatureEngineeringSuggestions
		}
	}

	if jobs != nil {
		if acc, f1, auc, ok := latestTrainingMetrics(jobs); ok {
			rep.HasTraining = true
			rep.Accuracy = acc
			rep.F1 = f1
			rep.ROCAUC = auc
		}
	}

	var accuracyPtr *float64
	if rep.HasTraining {
		accuracyPtr = &rep.Accuracy
	}
	rep.RiskRating = computeRiskRating(uc.Domain, accuracyPtr, rep.DataQuality)

	return rep, nil
}
