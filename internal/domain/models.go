package domain

import (
	"time"
)

// DailyMetric is one calendar day of observations for a single user.
type DailyMetric struct {
	UserID        string    `json:"user_id" validate:"required"`
	Date          time.Time `json:"date" validate:"required"`
	Steps         int       `json:"steps" validate:"gte=0"`
	ActiveMinutes int       `json:"active_minutes" validate:"gte=0"`
	CaloriesIn    int       `json:"calories_in" validate:"gte=0"`
	SleepHours    float64   `json:"sleep_hours" validate:"gte=0"`
	WeightKg      *float64  `json:"weight_kg,omitempty" validate:"omitempty,gt=0"`
	Emotion       *string   `json:"emotion,omitempty"`
}

// CoachProfile is the minimal coach metadata attached to a user.
type CoachProfile struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Description  *string `json:"description,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
	Model        *string `json:"model,omitempty"`
	AssistantID  *string `json:"assistant_id,omitempty"`
}

// DefaultCaretakerID is used when a profile arrives without a caretaker.
const DefaultCaretakerID = "UNKNOWN"

// UserProfile is a COPPA-safe snapshot of the child. Never mutated by the core.
type UserProfile struct {
	UserID           string        `json:"user_id" validate:"required"`
	FirstName        string        `json:"first_name" validate:"required"`
	Age              int           `json:"age" validate:"gte=2,lte=19"`
	Sex              *string       `json:"sex,omitempty"`
	HeightCm         *float64      `json:"height_cm,omitempty" validate:"omitempty,gt=0"`
	WeightKg         *float64      `json:"weight_kg,omitempty" validate:"omitempty,gt=0"`
	Preferences      []string      `json:"preferences"`
	HealthConditions []string      `json:"health_conditions"`
	CoachProfile     *CoachProfile `json:"coach_profile,omitempty" validate:"omitempty"`
	CaretakerID      *string       `json:"caretaker_id,omitempty"`
}

// Caretaker returns the caretaker id, or DefaultCaretakerID when none is set.
func (p UserProfile) Caretaker() string {
	if p.CaretakerID == nil || *p.CaretakerID == "" {
		return DefaultCaretakerID
	}
	return *p.CaretakerID
}

// GoalType is the kind of target a goal tracks.
type GoalType string

const (
	GoalTypeActiveMinutes GoalType = "active_minutes"
	GoalTypeHealthyMeals  GoalType = "healthy_meals"
	GoalTypeNutrition     GoalType = "nutrition"
	GoalTypeSteps         GoalType = "steps"
	GoalTypeSleep         GoalType = "sleep"
	GoalTypeMood          GoalType = "mood"
	GoalTypeOther         GoalType = "other"
)

// GoalPeriod is the period over which a goal is measured.
type GoalPeriod string

const (
	GoalPeriodDaily    GoalPeriod = "daily"
	GoalPeriodWeekly   GoalPeriod = "weekly"
	GoalPeriodMonthly  GoalPeriod = "monthly"
	GoalPeriodYearly   GoalPeriod = "yearly"
	GoalPeriodLifetime GoalPeriod = "lifetime"
)

// Goal is a user's target. Only Description goes through the safety gate.
type Goal struct {
	ID          string     `json:"id" validate:"required"`
	UserID      string     `json:"user_id" validate:"required"`
	Description string     `json:"description"`
	TargetValue string     `json:"target_value" validate:"required"`
	TargetUnit  string     `json:"target_unit" validate:"required"`
	Metric      string     `json:"metric" validate:"required"`
	Status      string     `json:"status" validate:"omitempty,oneof=active met expired"`
	StartDate   time.Time  `json:"start_date"`
	Type        *GoalType  `json:"type,omitempty" validate:"omitempty,oneof=active_minutes healthy_meals nutrition steps sleep mood other"`
	Period      GoalPeriod `json:"period" validate:"omitempty,oneof=daily weekly monthly yearly lifetime"`
}

// WithDefaults fills the status and period a client may omit.
func (g Goal) WithDefaults() Goal {
	if g.Status == "" {
		g.Status = "active"
	}
	if g.Period == "" {
		g.Period = GoalPeriodDaily
	}
	return g
}

// Badge is an optional award attached to a recommendation.
type Badge string

const (
	BadgeGold   Badge = "gold"
	BadgeSilver Badge = "silver"
	BadgeBronze Badge = "bronze"
)

// Recommendation is the daily coaching output.
type Recommendation struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	SendTime  int       `json:"send_time"` // hour the message should be sent
	Badge     *Badge    `json:"badge,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BehavioralRecommendation is a caretaker alert raised from a multi-day metric window.
type BehavioralRecommendation struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CaretakerID    string    `json:"caretaker_id"`
	AlertTitle     string    `json:"alert_title"`
	Summary        string    `json:"summary"`
	SuggestedStep  string    `json:"suggested_step"`
	TriggeredRules []RuleID  `json:"triggered_rules"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// RuleID names a behavioral heuristic.
type RuleID string

const (
	RuleCalorieDropActivityRise RuleID = "CAL_DROP_ACTIVITY_RISE"
	RuleLowCaloriePersist       RuleID = "LOW_CAL_PERSIST"
	RuleSleepDebt               RuleID = "SLEEP_DEBT"
)

// Category is a content-safety taxonomy entry.
type Category string

const (
	CategoryHarassment            Category = "harassment"
	CategoryHarassmentThreatening Category = "harassment/threatening"
	CategoryHate                  Category = "hate"
	CategoryHateThreatening       Category = "hate/threatening"
	CategoryIllicit               Category = "illicit"
	CategoryIllicitViolent        Category = "illicit/violent"
	CategorySelfHarm              Category = "self-harm"
	CategorySelfHarmIntent        Category = "self-harm/intent"
	CategorySelfHarmInstructions  Category = "self-harm/instructions"
	CategorySexual                Category = "sexual"
	CategorySexualMinors          Category = "sexual/minors"
	CategoryViolence              Category = "violence"
	CategoryViolenceGraphic       Category = "violence/graphic"
)

// Categories is the fixed taxonomy in canonical order.
var Categories = []Category{
	CategoryHarassment,
	CategoryHarassmentThreatening,
	CategoryHate,
	CategoryHateThreatening,
	CategoryIllicit,
	CategoryIllicitViolent,
	CategorySelfHarm,
	CategorySelfHarmIntent,
	CategorySelfHarmInstructions,
	CategorySexual,
	CategorySexualMinors,
	CategoryViolence,
	CategoryViolenceGraphic,
}

// ModerationResult is the safety gate verdict. Categories follow the taxonomy order.
type ModerationResult struct {
	Flagged    bool       `json:"flagged"`
	Categories []Category `json:"categories"`
}

// TimingPolicyType is the closed set of registered timing policies.
type TimingPolicyType string

const (
	TimingPolicyThompsonSampling TimingPolicyType = "thompson_sampling"
)

// TimingPolicyUpdate reports a reward for a delivered hour.
type TimingPolicyUpdate struct {
	PolicyType     TimingPolicyType `json:"policy_type" validate:"required"`
	Hour           int              `json:"hour" validate:"gte=0,lte=23"`
	Reward         int              `json:"reward" validate:"oneof=0 1"`
	UserID         *string          `json:"user_id,omitempty"`
	UserIP         *string          `json:"user_ip,omitempty"`
	EventID        *string          `json:"event_id,omitempty"`
	EventTimestamp *time.Time       `json:"event_timestamp,omitempty"`
}

// TimingPolicyResponse is the hour chosen by a policy.
type TimingPolicyResponse struct {
	PolicyType  TimingPolicyType `json:"policy_type"`
	Hour        int              `json:"hour"`
	UserID      *string          `json:"user_id,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}
