package services

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
)

const (
	// DefaultCoachName is used when the profile has no coach attached.
	DefaultCoachName = "Laura"

	// NoActionSentinel is what the caretaker model answers when nothing needs flagging.
	NoActionSentinel = "no action needed"

	DailyTemperature    float32 = 0.8
	BehaviorTemperature float32 = 0.8
	dailySeed                   = 42

	ToolSuggestGoal  = "suggest_goal"
	ToolCoachMessage = "coach_message"
	ToolIssueAlert   = "issue_alert"
)

var coachTools = []Tool{
	{
		Name:        ToolSuggestGoal,
		Description: "Propose a precise new goal based on today's metrics and risk score.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"metric":       {Type: jsonschema.String, Enum: []string{"steps", "active_minutes", "sleep_hours"}},
				"target_value": {Type: jsonschema.Number},
				"rationale":    {Type: jsonschema.String},
			},
			Required: []string{"metric", "target_value", "rationale"},
		},
	},
	{
		Name:        ToolCoachMessage,
		Description: "Chat message to child giving feedback, tips and encouragement.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"message": {Type: jsonschema.String},
			},
			Required: []string{"message"},
		},
	},
}

var caretakerTools = []Tool{
	{
		Name: ToolIssueAlert,
		Description: "Generate a concise, plain-language alert for the caretaker summarising " +
			"concerning behaviour patterns, why they matter, and a suggested next step.",
		Parameters: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"alert_title":    {Type: jsonschema.String},
				"summary":        {Type: jsonschema.String},
				"suggested_step": {Type: jsonschema.String},
			},
			Required: []string{"alert_title", "summary", "suggested_step"},
		},
	},
}

const caretakerSystemContext = `You are an expert pediatric dietitian helping a caregiver interpret multiple days of health data.
Be friendly, concise, supportive, and avoid blame.`

type fewShotExample struct {
	user       string
	assistants []string
}

var fewShotExamples = []fewShotExample{
	{
		user: userContext("Lily", 10, "female", []string{"dancing", "painting"}, nil, "140", "40",
			1500, 20, 2000, 8, "- Complete art sketch (status: on track)", "12.00%"),
		assistants: []string{
			"I suggest we increase Lily's daily steps to **4,000**. More daily steps will help build her endurance and keep her energized for both painting and dancing.",
			"Great effort getting 1,500 steps today, Lily! Let's aim for 4,000 steps tomorrow. Maybe try a fun dance break between your painting strokes.",
		},
	},
	{
		user: userContext("Max", 14, "male", []string{"soccer", "video games"}, []string{"asthma"}, "160", "55",
			6000, 15, 2200, 7.5, "- Play soccer twice this week (status: off track)", "30.00%"),
		assistants: []string{
			"My goal for Max would be to hit **30 minutes of active play**. Increasing his active minutes can improve lung capacity and help him better manage his asthma.",
			"Nice work on 6,000 steps, Max! Let's shoot for at least 30 minutes of active play tomorrow. It'll help with your asthma and get you ready for your next soccer game!",
		},
	},
	{
		user: userContext("Zoe", 13, "female", []string{"reading", "swimming"}, nil, "155", "45",
			8000, 45, 1800, 5.5, "- Read 20 pages per day (status: on track)", "20.00%"),
		assistants: []string{
			"Let's aim for **8 hours of sleep** tonight. Getting that much rest will improve Zoe's concentration and recovery.",
			"Great job with 8,000 steps and 45 active minutes, Zoe! Try winding down with a book instead of screens 30 minutes before bedtime to help reach 8 hours of sleep.",
		},
	},
}

// CoachName returns the coach configured on the profile, or DefaultCoachName.
func CoachName(profile domain.UserProfile) string {
	if profile.CoachProfile != nil && profile.CoachProfile.Name != "" {
		return profile.CoachProfile.Name
	}
	return DefaultCoachName
}

// BuildDailyPrompt assembles the coach prompt for one day of metrics.
func BuildDailyPrompt(profile domain.UserProfile, metric domain.DailyMetric, goals []domain.Goal, risk float64) Prompt {
	seed := dailySeed
	return Prompt{
		System:      coachSystemContext(CoachName(profile)),
		User:        DailyUserContext(profile, metric, goals, risk),
		Tools:       coachTools,
		ToolChoice:  ToolChoiceNone,
		UserID:      profile.UserID,
		Temperature: DailyTemperature,
		Seed:        &seed,
	}
}

func coachSystemContext(coachName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are %s, a friendly, empathetic youth health coach (age-appropriate tone, no weight-shaming).
Use evidence-based behaviour-change techniques: goal-setting, self-monitoring, feedback, praise.
When suggesting goals, only pick ONE, make it SMART (don't mention this explicitly, instead summarize how it's smart in a conversational, simple manner),
and tie it to the child's interests. You should always address the child by their first name in your message.
`, coachName)

	b.WriteString("\nExamples of good replies:\n")
	for i, ex := range fewShotExamples {
		fmt.Fprintf(&b, "\nExample %d input:\n%s\n", i+1, ex.user)
		for _, reply := range ex.assistants {
			fmt.Fprintf(&b, "Reply: %s\n", reply)
		}
	}
	return b.String()
}

// DailyUserContext renders the child, today's metrics, goals and risk.
func DailyUserContext(profile domain.UserProfile, metric domain.DailyMetric, goals []domain.Goal, risk float64) string {
	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		lines = append(lines, fmt.Sprintf("- %s (status: %s)", g.Description, g.Status))
	}
	goalLines := strings.Join(lines, "\n")
	if goalLines == "" {
		goalLines = "None"
	}

	return userContext(
		profile.FirstName,
		profile.Age,
		optionalString(profile.Sex),
		profile.Preferences,
		profile.HealthConditions,
		optionalFloat(profile.HeightCm),
		optionalFloat(profile.WeightKg),
		metric.Steps,
		metric.ActiveMinutes,
		metric.CaloriesIn,
		metric.SleepHours,
		goalLines,
		fmt.Sprintf("%.2f%%", risk*100),
	)
}

func userContext(name string, age int, sex string, prefs, conditions []string, height, weight string,
	steps, activeMinutes, calories int, sleep float64, goalLines, risk string) string {
	return fmt.Sprintf(`Child info:
- Name: %s
- Age: %d
- Sex: %s
- Preferences: %s
- Health conditions: %s
- Height (cm): %s
- Weight (kg): %s

Child metrics today:
- Steps: %d
- Active minutes: %d
- Calories in: %d
- Sleep hours: %g

Current goals:
%s

Risk score: %s
`, name, age, sex, joinOrNone(prefs), joinOrNone(conditions), height, weight,
		steps, activeMinutes, calories, sleep, goalLines, risk)
}

// BuildBehaviorPrompt assembles the caretaker prompt for a metric window.
func BuildBehaviorPrompt(profile domain.UserProfile, metrics []domain.DailyMetric, rules []domain.RuleID) Prompt {
	userID := profile.UserID
	if profile.CaretakerID != nil && *profile.CaretakerID != "" {
		userID = *profile.CaretakerID
	}
	return Prompt{
		System:      caretakerSystemContext,
		User:        CaretakerContext(profile, metrics, rules),
		Tools:       caretakerTools,
		ToolChoice:  ToolChoiceAuto,
		UserID:      userID,
		Temperature: BehaviorTemperature,
	}
}

// CaretakerContext renders 7-day trends and the triggered rules.
func CaretakerContext(profile domain.UserProfile, metrics []domain.DailyMetric, rules []domain.RuleID) string {
	caretaker := "Caretaker"
	if profile.CaretakerID != nil && *profile.CaretakerID != "" {
		caretaker = *profile.CaretakerID
	}

	trends := Trends(metrics)

	ruleNames := make([]string, 0, len(rules))
	for _, r := range rules {
		ruleNames = append(ruleNames, string(r))
	}

	return fmt.Sprintf(`Caretaker id: %s
Child: %s, %d years old
7-day behaviour summary: avg steps: %d, avg kcal: %d, avg sleep hours: %.1f
Triggered rules: %s

If Triggered rules is not 'None' or you identify other concerning patterns, call the function %s
with a helpful, empathetic title, a 1-3-sentence summary, and one concrete suggested next step.
If no concerning pattern, respond with: {"message":"No action needed"}
`, caretaker, profile.FirstName, profile.Age,
		trends.AvgSteps, trends.AvgCalories, trends.AvgSleepHours,
		joinOrNone(ruleNames), "`"+ToolIssueAlert+"`")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}

func optionalString(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}

func optionalFloat(f *float64) string {
	if f == nil {
		return "unknown"
	}
	return fmt.Sprintf("%g", *f)
}
