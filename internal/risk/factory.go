package risk

import (
	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
)

// ScorerKind is the closed set of risk scorers selectable from config.
type ScorerKind string

const (
	ScorerDemo  ScorerKind = "demo"
	ScorerModel ScorerKind = "model"
)

// NewScorer builds the scorer for kind. modelPath is only read for ScorerModel.
func NewScorer(kind ScorerKind, modelPath string) (domain.RiskScorer, error) {
	switch kind {
	case ScorerDemo:
		return NewDemoScorer(), nil
	case ScorerModel:
		if modelPath == "" {
			return nil, errors.NewConfigurationError("RISK_MODEL_PATH is required for the model risk scorer")
		}
		m, err := LoadLogisticModel(modelPath)
		if err != nil {
			return nil, err
		}
		return NewModelScorer(m), nil
	default:
		return nil, errors.NewUnknownPolicyTypeError("risk scorer", string(kind))
	}
}
