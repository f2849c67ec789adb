package training

import (
	"math"
	"path/filepath"
	"testing"
)

func syntheticFrame(n int) Frame {
	rows := make([][]float64, n)
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		x := float64(i%10) - 5
		rows[i] = []float64{x, -x}
		if x > 0 {
			labels[i] = 1
		}
	}
	return Frame{Columns: []string{"a", "b"}, Rows: rows, Labels: labels}
}

func TestTrainLogisticRegressionAboveChance(t *testing.T) {
	frame := syntheticFrame(200)
	cfg := DefaultConfig(AlgorithmLogisticRegression)
	res, err := Train(frame, 0, cfg, 1, t.TempDir())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if res.Metrics.Accuracy < 0.7 {
		t.Errorf("accuracy = %.2f, want >= 0.7 on a near-linearly-separable set", res.Metrics.Accuracy)
	}
	if res.Metrics.ROCAUC == nil {
		t.Fatal("expected ROC-AUC for binary classification")
	}
}

func TestTrainRandomForestProducesModelFile(t *testing.T) {
	frame := syntheticFrame(100)
	cfg := DefaultConfig(AlgorithmRandomForest)
	cfg.NumTrees = 5
	dir := t.TempDir()
	res, err := Train(frame, 0, cfg, 7, dir)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	want := filepath.Join(dir, "job_7_random_forest.json")
	if res.ModelPath != want {
		t.Errorf("ModelPath = %s, want %s", res.ModelPath, want)
	}
}

func TestTrainGradientBoostingFeatureImportances(t *testing.T) {
	frame := syntheticFrame(100)
	cfg := DefaultConfig(AlgorithmGradientBoosting)
	cfg.NumTrees = 10
	res, err := Train(frame, 0, cfg, 3, t.TempDir())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if len(res.Metrics.FeatureImportances) != 2 {
		t.Errorf("FeatureImportances has %d entries, want 2", len(res.Metrics.FeatureImportances))
	}
}

func TestTrainRejectsUnsupportedAlgorithm(t *testing.T) {
	frame := syntheticFrame(10)
	cfg := Config{Algorithm: "svm", TestSize: 0.2, RandomState: 1}
	if _, err := Train(frame, 0, cfg, 1, t.TempDir()); err == nil {
		t.Fatal("expected validation error for unsupported algorithm")
	}
}

func TestBuildFrameMissingTargetIsValidationError(t *testing.T) {
	rows := []map[string]string{{"a": "1", "b": "2"}}
	_, err := BuildFrame(rows, []string{"a", "b"}, "label")
	if err == nil {
		t.Fatal("expected error for missing target column")
	}
}

func TestBuildFrameNoNumericFeaturesIsDataError(t *testing.T) {
	rows := []map[string]string{
		{"name": "alice", "label": "1"},
		{"name": "bob", "label": "0"},
	}
	_, err := BuildFrame(rows, []string{"name", "label"}, "label")
	if err == nil {
		t.Fatal("expected error when no numeric feature columns remain")
	}
}

func TestBuildFrameFillsMissingWithZero(t *testing.T) {
	rows := []map[string]string{
		{"a": "1", "label": "1"},
		{"a": "", "label": "0"},
	}
	frame, err := BuildFrame(rows, []string{"a", "label"}, "label")
	if err != nil {
		t.Fatalf("BuildFrame: %v", err)
	}
	if frame.Rows[1][0] != 0 {
		t.Errorf("missing value = %v, want 0", frame.Rows[1][0])
	}
}

func TestEvaluateZeroDivisionYieldsZero(t *testing.T) {
	m := evaluate([]float64{0, 0, 0}, []float64{0, 0, 0}, []float64{0.1, 0.2, 0.3})
	if m.Precision != 0 || m.Recall != 0 || m.F1 != 0 {
		t.Errorf("expected zero precision/recall/f1 with no positive predictions, got %+v", m)
	}
	if m.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1 (all true negatives)", m.Accuracy)
	}
}

func TestROCAUCPerfectSeparationIsOne(t *testing.T) {
	actual := []float64{0, 0, 1, 1}
	scores := []float64{0.1, 0.2, 0.8, 0.9}
	auc := rocAUC(actual, scores)
	if math.Abs(auc-1.0) > 1e-9 {
		t.Errorf("rocAUC = %v, want 1.0", auc)
	}
}

func TestSplitTrainTestRespectsTestSize(t *testing.T) {
	frame := syntheticFrame(100)
	trainX, testX, trainY, _ := splitTrainTest(frame.Rows, frame.Labels, 0.25, 42)
	if len(testX) != 25 {
		t.Errorf("test set size = %d, want 25", len(testX))
	}
	if len(trainX) != 75 || len(trainY) != 75 {
		t.Errorf("train set size = %d/%d, want 75/75", len(trainX), len(trainY))
	}
}
