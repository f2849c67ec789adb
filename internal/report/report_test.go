package report

import (
	"path/filepath"
	"testing"

	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/repo"
)

func TestCompileUnknownUseCaseFallsBackToBareLabel(t *testing.T) {
	rep, err := Compile("not_a_real_use_case", nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if rep.UseCase.Key != "not_a_real_use_case" || rep.UseCase.Label != "not_a_real_use_case" {
		t.Fatalf("unexpected fallback use case: %+v", rep.UseCase)
	}
	if rep.HasPreprocessing || rep.HasTraining {
		t.Fatal("expected no preprocessing or training data with nil repos")
	}
}

func TestCompileNilReposStillSucceedsForKnownUseCase(t *testing.T) {
	rep, err := Compile("card_fraud_detection", nil, nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if rep.UseCase.Domain != "fraud_detection" {
		t.Fatalf("unexpected domain %q", rep.UseCase.Domain)
	}
	if rep.HasPreprocessing || rep.HasTraining {
		t.Fatal("expected no preprocessing or training data with nil repos")
	}
}

func TestCompileMergesPreprocessingAndTrainingData(t *testing.T) {
	preprocDB, err := repo.Open(filepath.Join(t.TempDir(), "preproc.db"))
	if err != nil {
		t.Fatalf("Open preproc db: %v", err)
	}
	defer preprocDB.Close()
	prep, err := repo.NewPreprocessingRepo(preprocDB)
	if err != nil {
		t.Fatalf("NewPreprocessingRepo: %v", err)
	}

	const ucKey = "card_fraud_detection"
	if err := prep.Save(domain.PreprocessingReport{
		UseCaseKey:        ucKey,
		Label:             "Card Fraud Detection",
		DataQualityScore:  92.5,
		ColumnProfiles:    []domain.ColumnProfile{{Name: "amount", Dtype: "float64", NonNull: 1000}},
		TargetDistribution: map[string]int{"0": 900, "1": 100},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	jobsDB, err := repo.Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open jobs db: %v", err)
	}
	defer jobsDB.Close()
	jobs, err := repo.NewJobRepo(jobsDB)
	if err != nil {
		t.Fatalf("NewJobRepo: %v", err)
	}

	job, err := jobs.Create("training", `{"use_case_key":"card_fraud_detection"}`)
	if err != nil {
		t.Fatalf("Create job: %v", err)
	}
	if err := jobs.UpdateResult(job.ID, `{"metrics":{"accuracy":0.94,"f1":0.88,"roc_auc":0.97}}`); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}

	rep, err := Compile(ucKey, prep, jobs)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !rep.HasPreprocessing {
		t.Fatal("expected HasPreprocessing=true")
	}
	if rep.DataQuality != 92.5 {
		t.Fatalf("DataQuality = %v, want 92.5", rep.DataQuality)
	}
	if !rep.HasTraining {
		t.Fatal("expected HasTraining=true")
	}
	if rep.Accuracy != 0.94 || rep.F1 != 0.88 {
		t.Fatalf("unexpected metrics: accuracy=%v f1=%v", rep.Accuracy, rep.F1)
	}
	if rep.ROCAUC == nil || *rep.ROCAUC != 0.97 {
		t.Fatalf("unexpected ROCAUC: %v", rep.ROCAUC)
	}
	if rep.RiskRating != "medium" {
		t.Fatalf("RiskRating = %q, want medium (fraud_detection floor)", rep.RiskRating)
	}
}
