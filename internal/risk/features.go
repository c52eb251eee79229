package risk

import (
	"math"
	"strings"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
)

// FeatureNames is the column order every model is trained on.
var FeatureNames = []string{"age", "height_cm", "weight_kg", "sex_female"}

// Features turns a profile into the model input vector. Missing values are NaN,
// never zero, so a trained model can impute them itself.
func Features(profile domain.UserProfile) []float64 {
	height := math.NaN()
	if profile.HeightCm != nil {
		height = *profile.HeightCm
	}

	weight := math.NaN()
	if profile.WeightKg != nil {
		weight = *profile.WeightKg
	}

	sex := math.NaN()
	if profile.Sex != nil {
		if strings.EqualFold(*profile.Sex, "female") {
			sex = 1
		} else {
			sex = 0
		}
	}

	return []float64{float64(profile.Age), height, weight, sex}
}
