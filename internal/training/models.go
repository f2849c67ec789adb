package training

import "math"

// logisticRegressionModel is a binary logistic regression fit by batch
// gradient descent, mirroring the minimal numeric style the corpus
// uses for its own scoring heuristics — no external optimizer.
type logisticRegressionModel struct {
	Weights []float64
	Bias    float64
}

func trainLogisticRegression(x [][]float64, y []float64, cfg Config) *logisticRegressionModel {
	if len(x) == 0 {
		return &logisticRegressionModel{}
	}
	nFeatures := len(x[0])
	m := &logisticRegressionModel{Weights: make([]float64, nFeatures)}

	epochs := cfg.Epochs
	if epochs <= 0 {
		epochs = 200
	}
	lr := cfg.LearnRate
	if lr <= 0 {
		lr = 0.1
	}
	n := float64(len(x))

	for e := 0; e < epochs; e++ {
		gradW := make([]float64, nFeatures)
		var gradB float64
		for i, row := range x {
			pred := sigmoid(dot(m.Weights, row) + m.Bias)
			errTerm := pred - y[i]
			for j, v := range row {
				gradW[j] += errTerm * v
			}
			gradB += errTerm
		}
		for j := range m.Weights {
			m.Weights[j] -= lr * gradW[j] / n
		}
		m.Bias -= lr * gradB / n
	}
	return m
}

func (m *logisticRegressionModel) PredictProba(row []float64) float64 {
	return sigmoid(dot(m.Weights, row) + m.Bias)
}

func (m *logisticRegressionModel) FeatureImportances(columns []string) map[string]float64 {
	out := make(map[string]float64, len(columns))
	for i, c := range columns {
		if i < len(m.Weights) {
			out[c] = math.Abs(m.Weights[i])
		}
	}
	return out
}

func (m *logisticRegressionModel) Marshal() (interface{}, error) {
	return m, nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// decisionStump is a single-feature, single-threshold binary split —
// the weak learner shared by the random forest and gradient boosting
// implementations below.
type decisionStump struct {
	Feature   int
	Threshold float64
	LeftVal   float64
	RightVal  float64
}

func (s *decisionStump) predict(row []float64) float64 {
	if row[s.Feature] <= s.Threshold {
		return s.LeftVal
	}
	return s.RightVal
}

// fitStump picks the feature/threshold that best separates y (by mean
// squared residual), searching each feature's observed values as
// candidate thresholds.
func fitStump(x [][]float64, y []float64, featureSubset []int) *decisionStump {
	best := &decisionStump{}
	bestScore := math.Inf(1)

	for _, f := range featureSubset {
		thresholds := uniqueSorted(columnValues(x, f))
		for _, t := range thresholds {
			var leftSum, rightSum float64
			var leftN, rightN int
			for i, row := range x {
				if row[f] <= t {
					leftSum += y[i]
					leftN++
				} else {
					rightSum += y[i]
					rightN++
				}
			}
			if leftN == 0 || rightN == 0 {
				continue
			}
			leftMean := leftSum / float64(leftN)
			rightMean := rightSum / float64(rightN)

			var sse float64
			for i, row := range x {
				pred := leftMean
				if row[f] > t {
					pred = rightMean
				}
				d := y[i] - pred
				sse += d * d
			}
			if sse < bestScore {
				bestScore = sse
				best = &decisionStump{Feature: f, Threshold: t, LeftVal: leftMean, RightVal: rightMean}
			}
		}
	}
	return best
}

func columnValues(x [][]float64, col int) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = row[col]
	}
	return out
}

func uniqueSorted(vals []float64) []float64 {
	seen := make(map[float64]struct{}, len(vals))
	for _, v := range vals {
		seen[v] = struct{}{}
	}
	out := make([]float64, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// randomForestModel averages the predictions of numTrees bagged
// decision stumps, each trained on a bootstrap sample and a random
// feature subset (sqrt of total features, floor 1).
type randomForestModel struct {
	Trees       []*decisionStump
	NumFeatures int
}

func trainRandomForest(x [][]float64, y []float64, cfg Config) *randomForestModel {
	numTrees := cfg.NumTrees
	if numTrees <= 0 {
		numTrees = 25
	}
	if len(x) == 0 {
		return &randomForestModel{}
	}
	nFeatures := len(x[0])
	subsetSize := int(math.Sqrt(float64(nFeatures)))
	if subsetSize < 1 {
		subsetSize = 1
	}

	rng := newDeterministicRNG(cfg.RandomState)
	model := &randomForestModel{NumFeatures: nFeatures}

	for t := 0; t < numTrees; t++ {
		bx, by := bootstrapSample(x, y, rng)
		subset := randomFeatureSubset(nFeatures, subsetSize, rng)
		model.Trees = append(model.Trees, fitStump(bx, by, subset))
	}
	return model
}

func (m *randomForestModel) PredictProba(row []float64) float64 {
	if len(m.Trees) == 0 {
		return 0
	}
	var sum float64
	for _, tree := range m.Trees {
		sum += tree.predict(row)
	}
	return clampProba(sum / float64(len(m.Trees)))
}

func (m *randomForestModel) FeatureImportances(columns []string) map[string]float64 {
	counts := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		if tree.Feature < len(counts) {
			counts[tree.Feature]++
		}
	}
	out := make(map[string]float64, len(columns))
	total := float64(len(m.Trees))
	for i, c := range columns {
		if i < len(counts) && total > 0 {
			out[c] = counts[i] / total
		}
	}
	return out
}

func (m *randomForestModel) Marshal() (interface{}, error) {
	return m, nil
}

// gradientBoostingModel fits an ensemble of stumps sequentially, each
// one correcting the residual left by the ones before it.
type gradientBoostingModel struct {
	Trees       []*decisionStump
	LearnRate   float64
	NumFeatures int
	InitPred    float64
}

func trainGradientBoosting(x [][]float64, y []float64, cfg Config) *gradientBoostingModel {
	numTrees := cfg.NumTrees
	if numTrees <= 0 {
		numTrees = 25
	}
	lr := cfg.LearnRate
	if lr <= 0 {
		lr = 0.1
	}
	if len(x) == 0 {
		return &gradientBoostingModel{LearnRate: lr}
	}
	nFeatures := len(x[0])

	var ySum float64
	for _, v := range y {
		ySum += v
	}
	initPred := ySum / float64(len(y))

	model := &gradientBoostingModel{LearnRate: lr, NumFeatures: nFeatures, InitPred: initPred}

	preds := make([]float64, len(x))
	for i := range preds {
		preds[i] = initPred
	}

	allFeatures := make([]int, nFeatures)
	for i := range allFeatures {
		allFeatures[i] = i
	}

	for t := 0; t < numTrees; t++ {
		residuals := make([]float64, len(y))
		for i := range y {
			residuals[i] = y[i] - preds[i]
		}
		stump := fitStump(x, residuals, allFeatures)
		model.Trees = append(model.Trees, stump)
		for i, row := range x {
			preds[i] += lr * stump.predict(row)
		}
	}
	return model
}

func (m *gradientBoostingModel) PredictProba(row []float64) float64 {
	pred := m.InitPred
	for _, tree := range m.Trees {
		pred += m.LearnRate * tree.predict(row)
	}
	return clampProba(pred)
}

func (m *gradientBoostingModel) FeatureImportances(columns []string) map[string]float64 {
	counts := make([]float64, m.NumFeatures)
	for _, tree := range m.Trees {
		if tree.Feature < len(counts) {
			counts[tree.Feature]++
		}
	}
	out := make(map[string]float64, len(columns))
	total := float64(len(m.Trees))
	for i, c := range columns {
		if i < len(counts) && total > 0 {
			out[c] = counts[i] / total
		}
	}
	return out
}

func (m *gradientBoostingModel) Marshal() (interface{}, error) {
	return m, nil
}

func clampProba(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// deterministicRNG is a tiny splitmix64-style generator so the forest's
// bootstrap sampling is reproducible from the configured random state
// without importing math/rand's global lock or non-deterministic seeding.
type deterministicRNG struct{ state uint64 }

func newDeterministicRNG(seed int64) *deterministicRNG {
	return &deterministicRNG{state: uint64(seed) + 0x9E3779B97F4A7C15}
}

func (r *deterministicRNG) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

func (r *deterministicRNG) intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.next() % uint64(n))
}

func bootstrapSample(x [][]float64, y []float64, rng *deterministicRNG) ([][]float64, []float64) {
	n := len(x)
	bx := make([][]float64, n)
	by := make([]float64, n)
	for i := 0; i < n; i++ {
		idx := rng.intn(n)
		bx[i] = x[idx]
		by[i] = y[idx]
	}
	return bx, by
}

func randomFeatureSubset(nFeatures, subsetSize int, rng *deterministicRNG) []int {
	all := make([]int, nFeatures)
	for i := range all {
		all[i] = i
	}
	for i := len(all) - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		all[i], all[j] = all[j], all[i]
	}
	if subsetSize > nFeatures {
		subsetSize = nFeatures
	}
	return all[:subsetSize]
}
