package services

import (
	"fmt"
	"sort"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// Thresholds for the red-flag rules.
const (
	MinBehaviorWindow = 7

	IncreasedActivityStepThreshold = 1500
	DecreasedCalorieThreshold      = 0.25
	LowCalorieThreshold            = 1200
	LowCalorieRunDays              = 3
	LowCalorieLookbackDays         = 5
	LowSleepThresholdHours         = 6.0
	SleepDebtDays                  = 4
)

// BehaviorService evaluates a window of daily metrics against fixed clinical heuristics.
type BehaviorService struct{}

func NewBehaviorService() *BehaviorService {
	return &BehaviorService{}
}

// Evaluate returns the violated rules in a stable order. Fewer than MinBehaviorWindow
// metrics is a validation error. The input slice is not modified.
func (s *BehaviorService) Evaluate(metrics []domain.DailyMetric) ([]domain.RuleID, error) {
	if len(metrics) < MinBehaviorWindow {
		return nil, errors.NewValidationError(
			fmt.Sprintf("at least %d daily metrics are required, got %d", MinBehaviorWindow, len(metrics)))
	}

	sorted := SortByDateDesc(metrics)

	violations := make([]domain.RuleID, 0, 3)
	if calorieDropWithActivityRise(sorted) {
		violations = append(violations, domain.RuleCalorieDropActivityRise)
	}
	if persistentLowCalories(sorted) {
		violations = append(violations, domain.RuleLowCaloriePersist)
	}
	if sleepDebt(sorted) {
		violations = append(violations, domain.RuleSleepDebt)
	}

	logger.Debug("Behavior rules evaluated", "metrics", len(metrics), "violations", violations)
	return violations, nil
}

// SortByDateDesc returns a copy of metrics ordered most recent first.
func SortByDateDesc(metrics []domain.DailyMetric) []domain.DailyMetric {
	sorted := make([]domain.DailyMetric, len(metrics))
	copy(sorted, metrics)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return sorted
}

// calorieDropWithActivityRise compares the latest 7 days with days 8 to 14.
func calorieDropWithActivityRise(sorted []domain.DailyMetric) bool {
	if len(sorted) <= MinBehaviorWindow {
		return false
	}
	end := 2 * MinBehaviorWindow
	if end > len(sorted) {
		end = len(sorted)
	}

	recentSteps, recentCalories := windowMeans(sorted[:MinBehaviorWindow])
	trailingSteps, trailingCalories := windowMeans(sorted[MinBehaviorWindow:end])
	if trailingCalories <= 0 {
		return false
	}

	drop := (trailingCalories - recentCalories) / trailingCalories
	return drop > DecreasedCalorieThreshold &&
		recentSteps > trailingSteps+IncreasedActivityStepThreshold
}

// persistentLowCalories looks for three consecutive low-intake days among the latest five.
func persistentLowCalories(sorted []domain.DailyMetric) bool {
	window := sorted
	if len(window) > LowCalorieLookbackDays {
		window = window[:LowCalorieLookbackDays]
	}

	run := 0
	for _, m := range window {
		if m.CaloriesIn < LowCalorieThreshold {
			run++
			if run >= LowCalorieRunDays {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func sleepDebt(sorted []domain.DailyMetric) bool {
	poor := 0
	for _, m := range sorted[:MinBehaviorWindow] {
		if m.SleepHours < LowSleepThresholdHours {
			poor++
		}
	}
	return poor >= SleepDebtDays
}

func windowMeans(window []domain.DailyMetric) (steps, calories float64) {
	for _, m := range window {
		steps += float64(m.Steps)
		calories += float64(m.CaloriesIn)
	}
	n := float64(len(window))
	return steps / n, calories / n
}

// WeeklyTrends are the 7-day averages shown to the caretaker model.
type WeeklyTrends struct {
	AvgSteps      int
	AvgCalories   int
	AvgSleepHours float64
}

// Trends averages the most recent 7 days. Steps and calories are truncated,
// sleep is rounded to one decimal.
func Trends(metrics []domain.DailyMetric) WeeklyTrends {
	sorted := SortByDateDesc(metrics)
	if len(sorted) > MinBehaviorWindow {
		sorted = sorted[:MinBehaviorWindow]
	}
	if len(sorted) == 0 {
		return WeeklyTrends{}
	}

	var steps, calories, sleep float64
	for _, m := range sorted {
		steps += float64(m.Steps)
		calories += float64(m.CaloriesIn)
		sleep += m.SleepHours
	}
	n := float64(len(sorted))
	return WeeklyTrends{
		AvgSteps:      int(steps / n),
		AvgCalories:   int(calories / n),
		AvgSleepHours: roundTo(sleep/n, 1),
	}
}
