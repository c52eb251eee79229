package risk

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
)

func ptr[T any](v T) *T { return &v }

func TestFeatures_MissingValuesAreNaN(t *testing.T) {
	f := Features(domain.UserProfile{UserID: "u", Age: 12})
	require.Len(t, f, 4)
	assert.Equal(t, 12.0, f[0])
	assert.True(t, math.IsNaN(f[1]))
	assert.True(t, math.IsNaN(f[2]))
	assert.True(t, math.IsNaN(f[3]))
}

func TestFeatures_SexEncoding(t *testing.T) {
	f := Features(domain.UserProfile{Age: 10, Sex: ptr("Female"), HeightCm: ptr(140.0), WeightKg: ptr(40.0)})
	assert.Equal(t, []float64{10, 140, 40, 1}, f)

	f = Features(domain.UserProfile{Age: 10, Sex: ptr("male")})
	assert.Equal(t, 0.0, f[3])
}

func TestDemoScorer_ReservedIDs(t *testing.T) {
	s := NewDemoScorer()
	cases := map[string]float64{
		"high_risk_user_1": 1.0,
		"high_risk_user_2": 1.0,
		"med_risk_user_1":  0.5,
		"med_risk_user_2":  0.5,
		"low_risk_user_1":  0.0,
		"low_risk_user_2":  0.0,
	}
	for id, want := range cases {
		t.Run(id, func(t *testing.T) {
			got, err := s.Score(domain.UserProfile{UserID: id, Age: 15, HeightCm: ptr(170.0), Sex: ptr("male")})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestDemoScorer_HighRiskIgnoresProfile(t *testing.T) {
	s := NewDemoScorer()
	for age := 2; age <= 19; age++ {
		got, err := s.Score(domain.UserProfile{UserID: "high_risk_user_1", Age: age, WeightKg: ptr(float64(age * 4))})
		require.NoError(t, err)
		assert.Equal(t, 1.0, got)
	}
}

func TestDemoScorer_DeterministicFallback(t *testing.T) {
	s := NewDemoScorer()
	p := domain.UserProfile{UserID: "someone", Age: 11, HeightCm: ptr(145.0)}

	first, err := s.Score(p)
	require.NoError(t, err)
	second, err := s.Score(p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 0.0)
	assert.Less(t, first, 1.0)
}

func writeArtifact(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadLogisticModel(t *testing.T) {
	path := writeArtifact(t, "model.json", `{
		"features": ["age", "height_cm", "weight_kg", "sex_female"],
		"coefficients": [0, 0, 0, 0],
		"intercept": 0,
		"imputation": [10, 140, 40, 0.5]
	}`)

	m, err := LoadLogisticModel(path)
	require.NoError(t, err)

	p, err := NewModelScorer(m).Score(domain.UserProfile{Age: 9})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p, 1e-9)
}

func TestLogisticModel_ImputesNaN(t *testing.T) {
	m := &LogisticModel{
		Coefficients: []float64{0, 0, 1, 0},
		Imputation:   []float64{0, 0, 2, 0},
	}
	p, err := m.Predict([]float64{12, math.NaN(), math.NaN(), math.NaN()})
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-2)), p, 1e-9)
}

func TestLoadLogisticModel_Malformed(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"wrong suffix", func(t *testing.T) string { return writeArtifact(t, "model.joblib", `{}`) }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.json") }},
		{"bad json", func(t *testing.T) string { return writeArtifact(t, "model.json", `{"coefficients":`) }},
		{"wrong length", func(t *testing.T) string {
			return writeArtifact(t, "model.json", `{"coefficients":[1,2],"intercept":0,"imputation":[0,0]}`)
		}},
		{"wrong feature order", func(t *testing.T) string {
			return writeArtifact(t, "model.json",
				`{"features":["height_cm","age","weight_kg","sex_female"],"coefficients":[1,1,1,1],"imputation":[0,0,0,0]}`)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLogisticModel(tt.path(t))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
		})
	}
}

func TestNewScorer(t *testing.T) {
	s, err := NewScorer(ScorerDemo, "")
	require.NoError(t, err)
	assert.IsType(t, &DemoScorer{}, s)

	_, err = NewScorer(ScorerModel, "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))

	_, err = NewScorer("xgboost", "")
	assert.ErrorIs(t, err, errors.ErrUnknownPolicyType)
}
