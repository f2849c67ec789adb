package repo

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/antigravity-dev/banking-platform/internal/cipher"
	"github.com/antigravity-dev/banking-platform/internal/domain"
)

func TestDatasetRepoCreateGetList(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "datasets.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	repo, err := NewDatasetRepo(db)
	if err != nil {
		t.Fatalf("NewDatasetRepo: %v", err)
	}

	d, err := repo.Create(domain.Dataset{
		Name:             "loans",
		OriginalFilename: "loans.csv",
		FilePath:         "/data/loans.csv",
		FileSize:         1024,
		Rows:             100,
		Cols:             5,
		Columns: []domain.ColumnProfile{
			{Name: "amount", Dtype: "float64", NonNull: 100, Unique: 87},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.ID == 0 {
		t.Fatal("Create did not assign an ID")
	}

	got, err := repo.Get(d.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "loans" || len(got.Columns) != 1 {
		t.Errorf("Get = %+v, want round-tripped dataset", got)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("List len = %d, want 1", len(all))
	}

	if err := repo.Delete(d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(d.ID); err == nil {
		t.Error("Delete of missing dataset did not error")
	}
}

func TestJobRepoLifecycle(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	repo, err := NewJobRepo(db)
	if err != nil {
		t.Fatalf("NewJobRepo: %v", err)
	}

	j, err := repo.Create("preprocessing", `{"use_case_key":"credit_risk"}`)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if j.Status != domain.JobQueued {
		t.Errorf("initial status = %s, want queued", j.Status)
	}

	if err := repo.UpdateStatus(j.ID, domain.JobRunning); err != nil {
		t.Fatalf("UpdateStatus running: %v", err)
	}
	running, err := repo.Get(j.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if running.StartedAt == nil {
		t.Error("StartedAt not stamped on transition to running")
	}

	if err := repo.UpdateProgress(j.ID, 150); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	progressed, _ := repo.Get(j.ID)
	if progressed.Progress != 100 {
		t.Errorf("Progress = %d, want clamped to 100", progressed.Progress)
	}

	if err := repo.UpdateResult(j.ID, `{"rows":100}`); err != nil {
		t.Fatalf("UpdateResult: %v", err)
	}
	done, _ := repo.Get(j.ID)
	if done.Status != domain.JobCompleted || done.CompletedAt == nil {
		t.Errorf("after UpdateResult: status=%s completed=%v", done.Status, done.CompletedAt)
	}

	if err := repo.Cancel(j.ID); err == nil {
		t.Error("Cancel of a completed job should fail")
	}
}

func TestJobRepoCancelAndOrphaned(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "jobs2.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo, _ := NewJobRepo(db)

	j, _ := repo.Create("training", "{}")
	if err := repo.Cancel(j.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	cancelled, _ := repo.Get(j.ID)
	if cancelled.Status != domain.JobCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}

	j2, _ := repo.Create("training", "{}")
	repo.UpdateStatus(j2.ID, domain.JobRunning)
	orphaned, err := repo.Orphaned(time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("Orphaned: %v", err)
	}
	if len(orphaned) != 1 || orphaned[0].ID != j2.ID {
		t.Errorf("Orphaned = %+v, want [job %d]", orphaned, j2.ID)
	}
}

func TestIntegrationRepoEncryptsSensitiveFields(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "integrations.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	enc, err := cipher.Load("", filepath.Join(t.TempDir(), ".key"))
	if err != nil {
		t.Fatalf("cipher.Load: %v", err)
	}
	repo, err := NewIntegrationRepo(db, enc)
	if err != nil {
		t.Fatalf("NewIntegrationRepo: %v", err)
	}

	in, err := repo.Create("postgres-main", map[string]interface{}{
		"host":     "localhost",
		"password": "hunter2",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.Get(in.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ConfigJSON == "" {
		t.Fatal("decrypted config is empty")
	}
}

func TestAlertEvaluate(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "alerts.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo, _ := NewAlertRepo(db)

	a, err := repo.Create(domain.Alert{
		Name:      "drift",
		Metric:    "accuracy",
		Threshold: 0.8,
		Operator:  domain.OpLT,
		Severity:  "critical",
		Enabled:   true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !a.Evaluate(0.5) {
		t.Error("Evaluate(0.5) with OpLT 0.8 should be true")
	}
	if a.Evaluate(0.9) {
		t.Error("Evaluate(0.9) with OpLT 0.8 should be false")
	}

	if err := repo.MarkTriggered(a.ID); err != nil {
		t.Fatalf("MarkTriggered: %v", err)
	}
	got, _ := repo.Get(a.ID)
	if got.LastTriggered == nil {
		t.Error("LastTriggered not set after MarkTriggered")
	}
}

func TestAuditRepoAppendAndRecent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo, _ := NewAuditRepo(db)

	if err := repo.Append("dataset.upload", "loans.csv", "", domain.AuditCreate); err != nil {
		t.Fatalf("Append: %v", err)
	}
	entries, err := repo.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].User != "system" {
		t.Errorf("Recent = %+v", entries)
	}
}

func TestGovernanceRepoScoreAndVectorDBJob(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "governance.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo, _ := NewGovernanceRepo(db)

	_, err = repo.RecordScore(domain.GovernanceScore{
		UseCaseKey:          "credit_risk",
		FairnessScore:       0.9,
		ExplainabilityScore: 0.8,
		RobustnessScore:     0.85,
		OverallScore:        0.85,
		RiskTier:            "low",
	})
	if err != nil {
		t.Fatalf("RecordScore: %v", err)
	}
	got, err := repo.LatestScore("credit_risk")
	if err != nil {
		t.Fatalf("LatestScore: %v", err)
	}
	if got.RiskTier != "low" {
		t.Errorf("RiskTier = %s, want low", got.RiskTier)
	}

	j, err := repo.StartVectorDBJob("credit_risk", "credit_risk_docs")
	if err != nil {
		t.Fatalf("StartVectorDBJob: %v", err)
	}
	if err := repo.CompleteVectorDBJob(j.ID, "completed", 42); err != nil {
		t.Fatalf("CompleteVectorDBJob: %v", err)
	}
}

func TestPreprocessingRepoSaveAndLatest(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "preprocessing.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	repo, _ := NewPreprocessingRepo(db)

	rep := domain.PreprocessingReport{
		UseCaseKey:       "credit_risk",
		Label:            "Credit Risk",
		DataQualityScore: 0.92,
	}
	if err := repo.Save(rep); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Latest("credit_risk")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.DataQualityScore != 0.92 {
		t.Errorf("DataQualityScore = %v, want 0.92", got.DataQualityScore)
	}
}

func TestSanitizeIdent(t *testing.T) {
	cases := map[string]string{
		"credit_risk":        "credit_risk",
		"drop table x; --":   "droptablex",
		"":                   "_",
		"valid-key_123":      "validkey_123",
	}
	for in, want := range cases {
		if got := sanitizeIdent(in); got != want {
			t.Errorf("sanitizeIdent(%q) = %q, want %q", in, got, want)
		}
	}
}
