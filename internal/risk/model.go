package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
)

// Model predicts a probability from a feature vector laid out as FeatureNames.
type Model interface {
	Predict(features []float64) (float64, error)
}

// ModelScorer adapts a Model to domain.RiskScorer.
type ModelScorer struct {
	model Model
}

func NewModelScorer(model Model) *ModelScorer {
	return &ModelScorer{model: model}
}

func (s *ModelScorer) Score(profile domain.UserProfile) (float64, error) {
	p, err := s.model.Predict(Features(profile))
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, errors.NewInternalError(fmt.Errorf("risk model returned %v outside [0,1]", p))
	}
	return p, nil
}

// LogisticModel is a logistic regression exported as JSON.
type LogisticModel struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	Imputation   []float64 `json:"imputation"`
}

// LoadLogisticModel reads and validates a model artifact. Any defect is a configuration error.
func LoadLogisticModel(path string) (*LogisticModel, error) {
	if !strings.HasSuffix(path, ".json") {
		return nil, errors.NewConfigurationError(fmt.Sprintf("risk model %q must be a .json file", path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "RISK_MODEL", "failed to read risk model").
			WithContext("path", path)
	}

	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfiguration, "RISK_MODEL", "failed to parse risk model").
			WithContext("path", path)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *LogisticModel) validate() error {
	n := len(FeatureNames)
	if len(m.Coefficients) != n || len(m.Imputation) != n {
		return errors.NewConfigurationError(
			fmt.Sprintf("risk model needs %d coefficients and imputation values, got %d and %d",
				n, len(m.Coefficients), len(m.Imputation)))
	}
	if len(m.Features) != 0 {
		if len(m.Features) != n {
			return errors.NewConfigurationError(fmt.Sprintf("risk model lists %d features, want %d", len(m.Features), n))
		}
		for i, name := range m.Features {
			if name != FeatureNames[i] {
				return errors.NewConfigurationError(
					fmt.Sprintf("risk model feature %d is %q, want %q", i, name, FeatureNames[i]))
			}
		}
	}

	values := append(append([]float64{m.Intercept}, m.Coefficients...), m.Imputation...)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewConfigurationError("risk model contains non-finite numbers")
		}
	}
	return nil
}

// Predict imputes NaN features, then applies the sigmoid.
func (m *LogisticModel) Predict(features []float64) (float64, error) {
	if len(features) != len(m.Coefficients) {
		return 0, errors.NewInternalError(
			fmt.Errorf("risk model expects %d features, got %d", len(m.Coefficients), len(features)))
	}
	z := m.Intercept
	for i, x := range features {
		if math.IsNaN(x) {
			x = m.Imputation[i]
		}
		z += m.Coefficients[i] * x
	}
	return 1 / (1 + math.Exp(-z)), nil
}
