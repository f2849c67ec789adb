package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/antigravity-dev/banking-platform/internal/domain"
	"github.com/antigravity-dev/banking-platform/internal/repo"
	"github.com/antigravity-dev/banking-platform/internal/scheduler"
)

func writeTestCSV(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	defer f.Close()
	if _, err := f.WriteString(joinCSVLine(header)); err != nil {
		t.Fatal(err)
	}
	for _, row := range rows {
		if _, err := f.WriteString(joinCSVLine(row)); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func joinCSVLine(fields []string) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ","
		}
		out += f
	}
	return out + "\n"
}

func TestDataSplitWritesTrainAndTestFiles(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeTestCSV(t, dir, "source.csv",
		[]string{"amount", "label"},
		[][]string{
			{"10", "0"}, {"20", "1"}, {"30", "0"}, {"40", "1"}, {"50", "0"},
			{"60", "1"}, {"70", "0"}, {"80", "1"}, {"90", "0"}, {"100", "1"},
		})

	db, err := repo.Open(filepath.Join(dir, "admin.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	datasets, err := repo.NewDatasetRepo(db)
	if err != nil {
		t.Fatalf("NewDatasetRepo: %v", err)
	}
	if _, err := datasets.Create(domain.Dataset{
		Name:     "loans",
		FilePath: csvPath,
		Rows:     10,
		Cols:     2,
		Columns:  []domain.ColumnProfile{{Name: "amount"}, {Name: "label"}},
	}); err != nil {
		t.Fatalf("Create dataset: %v", err)
	}

	d := Deps{Datasets: datasets, OutDir: filepath.Join(dir, "out")}
	res := d.dataSplit(context.Background(), scheduler.SubtaskInput{UseCaseKey: "card_fraud_detection"})
	if res.Status != scheduler.StatusOK {
		t.Fatalf("dataSplit status = %v, error = %s", res.Status, res.Error)
	}
	if len(res.ArtifactPaths) != 2 {
		t.Fatalf("expected 2 artifact paths, got %d", len(res.ArtifactPaths))
	}
	if _, err := os.Stat(res.ArtifactPaths[0]); err != nil {
		t.Fatalf("train.csv not written: %v", err)
	}
	if _, err := os.Stat(res.ArtifactPaths[1]); err != nil {
		t.Fatalf("test.csv not written: %v", err)
	}
	if res.Metrics["train_rows"] != 8 || res.Metrics["test_rows"] != 2 {
		t.Fatalf("unexpected split sizes: %+v", res.Metrics)
	}
}

func TestDataSplitSkipsWithoutDatasetRepo(t *testing.T) {
	d := Deps{}
	res := d.dataSplit(context.Background(), scheduler.SubtaskInput{UseCaseKey: "card_fraud_detection"})
	if res.Status != scheduler.StatusSkip {
		t.Fatalf("expected skip, got %v", res.Status)
	}
}

func TestNoiseRemovalDropsSparseRowsAndPersistsReport(t *testing.T) {
	dir := t.TempDir()
	trainPath := writeTestCSV(t, dir, "train.csv",
		[]string{"a", "b"},
		[][]string{
			{"1", "2"},
			{"", ""},
			{"3", "4"},
		})

	db, err := repo.Open(filepath.Join(dir, "preproc.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	prep, err := repo.NewPreprocessingRepo(db)
	if err != nil {
		t.Fatalf("NewPreprocessingRepo: %v", err)
	}

	d := Deps{Preprocessing: prep, OutDir: filepath.Join(dir, "out")}
	res := d.noiseRemoval(context.Background(), scheduler.SubtaskInput{
		UseCaseKey: "card_fraud_detection",
		PriorPaths: []string{trainPath, "test.csv"},
	})
	if res.Status != scheduler.StatusOK {
		t.Fatalf("noiseRemoval status = %v, error = %s", res.Status, res.Error)
	}
	if res.Metrics["rows_dropped"] != 1 {
		t.Fatalf("expected 1 row dropped, got %v", res.Metrics["rows_dropped"])
	}

	rep, err := prep.Latest("card_fraud_detection")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if rep.DataQualityScore <= 0 {
		t.Fatalf("expected a positive data quality score, got %v", rep.DataQualityScore)
	}
}

func TestNoiseRemovalSkipsWithoutPriorSplit(t *testing.T) {
	d := Deps{}
	res := d.noiseRemoval(context.Background(), scheduler.SubtaskInput{UseCaseKey: "x"})
	if res.Status != scheduler.StatusSkip {
		t.Fatalf("expected skip, got %v", res.Status)
	}
}

func TestModelEvaluationPassesThroughPriorMetrics(t *testing.T) {
	d := Deps{}
	res := d.modelEvaluation(context.Background(), scheduler.SubtaskInput{
		PriorMetrics: map[string]interface{}{"accuracy": 0.91, "f1": 0.88, "roc_auc": 0.95},
	})
	if res.Status != scheduler.StatusOK {
		t.Fatalf("expected ok, got %v: %s", res.Status, res.Error)
	}
	if res.Metrics["accuracy"] != 0.91 {
		t.Fatalf("unexpected accuracy: %v", res.Metrics["accuracy"])
	}
}

func TestModelEvaluationSkipsWithoutPriorAccuracy(t *testing.T) {
	d := Deps{}
	res := d.modelEvaluation(context.Background(), scheduler.SubtaskInput{})
	if res.Status != scheduler.StatusSkip {
		t.Fatalf("expected skip, got %v", res.Status)
	}
}

func TestModelBenchmarkingSkipsWithoutMetrics(t *testing.T) {
	d := Deps{}
	res := d.modelBenchmarking(context.Background(), scheduler.SubtaskInput{})
	if res.Status != scheduler.StatusSkip {
		t.Fatalf("expected skip, got %v", res.Status)
	}
}

func TestGovernanceScoringSkipsWithoutRepo(t *testing.T) {
	d := Deps{}
	res := d.governanceScoring(context.Background(), scheduler.SubtaskInput{
		PriorMetrics: map[string]interface{}{"accuracy": 0.9},
	})
	if res.Status != scheduler.StatusSkip {
		t.Fatalf("expected skip, got %v", res.Status)
	}
}

func TestGovernanceScoringPersistsScore(t *testing.T) {
	dir := t.TempDir()
	db, err := repo.Open(filepath.Join(dir, "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	gov, err := repo.NewGovernanceRepo(db)
	if err != nil {
		t.Fatalf("NewGovernanceRepo: %v", err)
	}

	d := Deps{Governance: gov}
	res := d.governanceScoring(context.Background(), scheduler.SubtaskInput{
		UseCaseKey:   "card_fraud_detection",
		PriorMetrics: map[string]interface{}{"accuracy": 0.9},
	})
	if res.Status != scheduler.StatusOK {
		t.Fatalf("governanceScoring status = %v, error = %s", res.Status, res.Error)
	}
	if _, ok := res.Metrics["governance_overall"].(float64); !ok {
		t.Fatalf("expected governance_overall in metrics: %+v", res.Metrics)
	}
}

func TestPearsonPerfectCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5}
	b := []float64{2, 4, 6, 8, 10}
	if got := pearson(a, b); got < 0.999 {
		t.Fatalf("pearson(a, b) = %v, want ~1", got)
	}
}

func TestPearsonConstantColumnIsZero(t *testing.T) {
	a := []float64{1, 1, 1}
	b := []float64{1, 2, 3}
	if got := pearson(a, b); got != 0 {
		t.Fatalf("pearson with constant column = %v, want 0", got)
	}
}

func TestProfileColumnsDetectsNumericAndCategorical(t *testing.T) {
	rows := []map[string]string{
		{"amount": "10.5", "status": "ok"},
		{"amount": "20", "status": "fail"},
		{"amount": "", "status": "ok"},
	}
	profiles := profileColumns(rows, []string{"amount", "status"})
	byName := map[string]domain.ColumnProfile{}
	for _, p := range profiles {
		byName[p.Name] = p
	}
	if byName["amount"].Dtype != "numeric" {
		t.Fatalf("expected amount to be numeric, got %q", byName["amount"].Dtype)
	}
	if byName["amount"].NullCount != 1 {
		t.Fatalf("expected 1 null in amount, got %d", byName["amount"].NullCount)
	}
	if byName["status"].Dtype != "categorical" {
		t.Fatalf("expected status to be categorical, got %q", byName["status"].Dtype)
	}
}

func TestFeatureSuggestionsCapsAtFive(t *testing.T) {
	header := []string{"a", "b", "c", "d", "e", "f", "g"}
	out := featureSuggestions(header)
	if len(out) != 5 {
		t.Fatalf("expected 5 suggestions, got %d", len(out))
	}
}

func TestSplitOnDelimiterRoundTripsChunks(t *testing.T) {
	text := "first chunk\nline two\n---\nsecond chunk\n---\n"
	chunks := splitOnDelimiter(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0] != "first chunk\nline two\n" {
		t.Fatalf("unexpected first chunk: %q", chunks[0])
	}
	if chunks[1] != "second chunk\n" {
		t.Fatalf("unexpected second chunk: %q", chunks[1])
	}
}
