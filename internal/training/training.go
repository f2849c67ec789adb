// Package training implements the model-training subtask: load a
// dataset, validate and split it, fit one of three small from-scratch
// classifiers, evaluate, and persist the model and its metrics. No ML
// library in the example corpus offers logistic regression/random
// forest/gradient boosting in Go, so these are hand-rolled numeric
// routines — the one ambient concern in this platform built on the
// standard library by necessity rather than preference (see the
// design ledger).
package training

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

// Algorithm names the supported training algorithms.
type Algorithm string

const (
	AlgorithmLogisticRegression Algorithm = "logistic_regression"
	AlgorithmRandomForest       Algorithm = "random_forest"
	AlgorithmGradientBoosting   Algorithm = "gradient_boosting"
)

func validAlgorithm(a Algorithm) bool {
	switch a {
	case AlgorithmLogisticRegression, AlgorithmRandomForest, AlgorithmGradientBoosting:
		return true
	}
	return false
}

// Frame is a minimal in-memory tabular frame: row-major numeric
// features plus a label column, mirroring what the datasets repository
// profiles at upload time.
type Frame struct {
	Columns []string
	Rows    [][]float64 // row-major numeric features, target excluded
	Labels  []float64
}

// Config parameterizes a training run.
type Config struct {
	Algorithm   Algorithm
	TestSize    float64
	RandomState int64
	Epochs      int // logistic regression only
	LearnRate   float64
	NumTrees    int // random forest / gradient boosting
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig(algo Algorithm) Config {
	return Config{
		Algorithm:   algo,
		TestSize:    0.2,
		RandomState: 42,
		Epochs:      200,
		LearnRate:   0.1,
		NumTrees:    25,
	}
}

// Metrics holds the evaluation results of one trained model.
type Metrics struct {
	Accuracy           float64            `json:"accuracy"`
	Precision          float64            `json:"precision"`
	Recall             float64            `json:"recall"`
	F1                 float64            `json:"f1"`
	ROCAUC             *float64           `json:"roc_auc,omitempty"`
	ConfusionMatrix    [][]int            `json:"confusion_matrix"`
	FeatureImportances map[string]float64 `json:"feature_importances"`
}

// Result is what Train returns: a trained model plus its metrics and
// the path it was persisted to.
type Result struct {
	Algorithm Algorithm
	ModelPath string
	Metrics   Metrics
}

// Train runs the full training procedure against a dataset frame and
// persists the fitted model to modelDir/job_<jobID>_<algorithm>.json.
func Train(frame Frame, targetIdx int, cfg Config, jobID int64, modelDir string) (Result, error) {
	if !validAlgorithm(cfg.Algorithm) {
		return Result{}, apierrors.Validation("unsupported training algorithm %q", cfg.Algorithm)
	}
	if len(frame.Rows) == 0 {
		return Result{}, apierrors.Data(nil, "dataset has no rows")
	}
	if len(frame.Columns) == 0 {
		return Result{}, apierrors.Data(nil, "dataset has no numeric feature columns")
	}

	trainX, testX, trainY, testY := splitTrainTest(frame.Rows, frame.Labels, cfg.TestSize, cfg.RandomState)

	var model Model
	switch cfg.Algorithm {
	case AlgorithmLogisticRegression:
		model = trainLogisticRegression(trainX, trainY, cfg)
	case AlgorithmRandomForest:
		model = trainRandomForest(trainX, trainY, cfg)
	case AlgorithmGradientBoosting:
		model = trainGradientBoosting(trainX, trainY, cfg)
	}

	preds := make([]float64, len(testX))
	probs := make([]float64, len(testX))
	for i, row := range testX {
		probs[i] = model.PredictProba(row)
		preds[i] = math.Round(probs[i])
	}

	metrics := evaluate(testY, preds, probs)
	metrics.FeatureImportances = model.FeatureImportances(frame.Columns)

	modelPath := filepath.Join(modelDir, fmt.Sprintf("job_%d_%s.json", jobID, cfg.Algorithm))
	if err := persistModel(modelPath, cfg.Algorithm, frame.Columns, model); err != nil {
		return Result{}, err
	}

	return Result{Algorithm: cfg.Algorithm, ModelPath: modelPath, Metrics: metrics}, nil
}

// Model is the common interface every trained algorithm implements.
type Model interface {
	PredictProba(row []float64) float64
	FeatureImportances(columns []string) map[string]float64
	Marshal() (interface{}, error)
}

func persistModel(path string, algo Algorithm, columns []string, model Model) error {
	payload, err := model.Marshal()
	if err != nil {
		return apierrors.Model(err, "serialize %s model", algo)
	}
	b, err := json.MarshalIndent(struct {
		Algorithm Algorithm   `json:"algorithm"`
		Columns   []string    `json:"columns"`
		Model     interface{} `json:"model"`
	}{Algorithm: algo, Columns: columns, Model: payload}, "", "  ")
	if err != nil {
		return apierrors.Model(err, "marshal %s model envelope", algo)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return apierrors.Model(err, "create model directory")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return apierrors.Model(err, "write model file %s", path)
	}
	return nil
}

func splitTrainTest(rows [][]float64, labels []float64, testSize float64, randomState int64) (trainX, testXOut [][]float64, trainY, testY []float64) {
	n := len(rows)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	r := rand.New(rand.NewSource(randomState))
	r.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	testN := int(float64(n) * testSize)
	testIdx := idx[:testN]
	trainIdx := idx[testN:]

	for _, i := range trainIdx {
		trainX = append(trainX, rows[i])
		trainY = append(trainY, labels[i])
	}
	var testX [][]float64
	for _, i := range testIdx {
		testX = append(testX, rows[i])
		testY = append(testY, labels[i])
	}
	return trainX, testX, trainY, testY
}

func evaluate(actual, predicted, probs []float64) Metrics {
	var tp, fp, tn, fn int
	for i := range actual {
		switch {
		case actual[i] == 1 && predicted[i] == 1:
			tp++
		case actual[i] == 0 && predicted[i] == 1:
			fp++
		case actual[i] == 0 && predicted[i] == 0:
			tn++
		case actual[i] == 1 && predicted[i] == 0:
			fn++
		}
	}
	total := tp + fp + tn + fn
	accuracy := safeDiv(float64(tp+tn), float64(total))
	precision := safeDiv(float64(tp), float64(tp+fp))
	recall := safeDiv(float64(tp), float64(tp+fn))
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	m := Metrics{
		Accuracy:        accuracy,
		Precision:       precision,
		Recall:          recall,
		F1:              f1,
		ConfusionMatrix: [][]int{{tn, fp}, {fn, tp}},
	}

	if isBinaryLabelSet(actual) {
		auc := rocAUC(actual, probs)
		m.ROCAUC = &auc
	}
	return m
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func isBinaryLabelSet(labels []float64) bool {
	for _, l := range labels {
		if l != 0 && l != 1 {
			return false
		}
	}
	return true
}

// rocAUC computes the area under the ROC curve via the rank-sum
// (Mann-Whitney U) method, avoiding a dependency on a plotting/metrics library.
func rocAUC(actual, scores []float64) float64 {
	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, len(actual))
	for i := range actual {
		pairs[i] = pair{score: scores[i], label: actual[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	var rankSum float64
	var numPos, numNeg int
	for i, p := range pairs {
		rank := float64(i + 1)
		if p.label == 1 {
			rankSum += rank
			numPos++
		} else {
			numNeg++
		}
	}
	if numPos == 0 || numNeg == 0 {
		return 0.5
	}
	u := rankSum - float64(numPos*(numPos+1))/2
	return u / float64(numPos*numNeg)
}
