package training

import (
	"encoding/json"
	"os"

	"github.com/antigravity-dev/banking-platform/internal/apierrors"
)

type modelEnvelope struct {
	Algorithm Algorithm       `json:"algorithm"`
	Columns   []string        `json:"columns"`
	Model     json.RawMessage `json:"model"`
}

// LoadedModel wraps a model reloaded from disk together with the feature
// column order it was trained on, so scoring can map a named-feature
// request onto the row shape the model expects.
type LoadedModel struct {
	Algorithm Algorithm
	Columns   []string
	model     Model
}

// PredictProba scores one row given as column-name -> value, filling any
// column the request omits with zero.
func (m *LoadedModel) PredictProba(features map[string]float64) float64 {
	row := make([]float64, len(m.Columns))
	for i, c := range m.Columns {
		row[i] = features[c]
	}
	return m.model.PredictProba(row)
}

// LoadModel reads a model file persisted by Train and reconstructs the
// concrete model behind the Model interface.
func LoadModel(path string) (*LoadedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apierrors.Data(err, "read model file %s", path)
	}
	var env modelEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apierrors.Data(err, "parse model envelope %s", path)
	}

	var model Model
	switch env.Algorithm {
	case AlgorithmLogisticRegression:
		m := &logisticRegressionModel{}
		if err := json.Unmarshal(env.Model, m); err != nil {
			return nil, apierrors.Data(err, "parse logistic regression model %s", path)
		}
		model = m
	case AlgorithmRandomForest:
		m := &randomForestModel{}
		if err := json.Unmarshal(env.Model, m); err != nil {
			return nil, apierrors.Data(err, "parse random forest model %s", path)
		}
		model = m
	case AlgorithmGradientBoosting:
		m := &gradientBoostingModel{}
		if err := json.Unmarshal(env.Model, m); err != nil {
			return nil, apierrors.Data(err, "parse gradient boosting model %s", path)
		}
		model = m
	default:
		return nil, apierrors.Validation("unknown algorithm %q in model file %s", env.Algorithm, path)
	}

	return &LoadedModel{Algorithm: env.Algorithm, Columns: env.Columns, model: model}, nil
}
