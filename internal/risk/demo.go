package risk

import (
	"math"

	"golang.org/x/exp/rand"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
)

// Reserved profile ids with fixed scores, for test harnesses only.
var (
	demoHighRiskIDs = map[string]struct{}{"high_risk_user_1": {}, "high_risk_user_2": {}}
	demoMedRiskIDs  = map[string]struct{}{"med_risk_user_1": {}, "med_risk_user_2": {}}
	demoLowRiskIDs  = map[string]struct{}{"low_risk_user_1": {}, "low_risk_user_2": {}}
)

// DemoModel returns a deterministic pseudo-random value in [0,1) per feature vector.
type DemoModel struct{}

// Predict seeds a generator from the feature sum. NaN features are ignored.
func (DemoModel) Predict(features []float64) (float64, error) {
	sum := 0.0
	for _, f := range features {
		if !math.IsNaN(f) {
			sum += f
		}
	}
	seed := uint64(int64(math.Abs(sum)*1e6)) & 0xFFFFFFFF
	return rand.New(rand.NewSource(seed)).Float64(), nil
}

// DemoScorer pins reserved ids to 1.0, 0.5 and 0.0 and defers everything else to Base.
type DemoScorer struct {
	Base domain.RiskScorer
}

// NewDemoScorer wraps the demo model behind the reserved-id lookup.
func NewDemoScorer() *DemoScorer {
	return &DemoScorer{Base: NewModelScorer(DemoModel{})}
}

func (s *DemoScorer) Score(profile domain.UserProfile) (float64, error) {
	if _, ok := demoHighRiskIDs[profile.UserID]; ok {
		return 1.0, nil
	}
	if _, ok := demoMedRiskIDs[profile.UserID]; ok {
		return 0.5, nil
	}
	if _, ok := demoLowRiskIDs[profile.UserID]; ok {
		return 0.0, nil
	}
	return s.Base.Score(profile)
}
