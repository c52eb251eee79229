package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// TextGenerator is the part of AIService the orchestrator depends on.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) (*Completion, error)
}

// RuleEvaluator is the part of BehaviorService the orchestrator depends on.
type RuleEvaluator interface {
	Evaluate(metrics []domain.DailyMetric) ([]domain.RuleID, error)
}

// OrchestrationService sequences the safety gate, risk scoring, generation and
// timing into recommendations. It never retries a collaborator.
type OrchestrationService struct {
	detector  domain.ContentDetector
	scorer    domain.RiskScorer
	generator TextGenerator
	timing    domain.TimingPolicy
	rules     RuleEvaluator

	now   func() time.Time
	newID func() string
}

func NewOrchestrationService(
	detector domain.ContentDetector,
	scorer domain.RiskScorer,
	generator TextGenerator,
	timing domain.TimingPolicy,
	rules RuleEvaluator,
) *OrchestrationService {
	return &OrchestrationService{
		detector:  detector,
		scorer:    scorer,
		generator: generator,
		timing:    timing,
		rules:     rules,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// CreateDailyRecommendation moderates the goals, scores risk, generates the coach
// message and picks a send hour. Flagged goals abort before any other collaborator runs.
// The caller guarantees profile and metric belong to the same user.
func (s *OrchestrationService) CreateDailyRecommendation(
	ctx context.Context,
	profile domain.UserProfile,
	metric domain.DailyMetric,
	goals []domain.Goal,
) (*domain.Recommendation, error) {
	log := logger.WithFields("user_id", profile.UserID)
	log.Info("Creating recommendation", "goals", len(goals))

	descriptions := make([]string, 0, len(goals))
	for _, g := range goals {
		descriptions = append(descriptions, g.Description)
	}
	goalText := strings.Join(descriptions, "\n")

	verdict, err := s.detector.Detect(ctx, goalText)
	if err != nil {
		return nil, wrapCollaborator(err, "content detection")
	}
	if verdict.Flagged {
		categories := make([]string, 0, len(verdict.Categories))
		for _, c := range verdict.Categories {
			categories = append(categories, string(c))
		}
		log.Warn("Content flagged", "categories", categories)
		return nil, errors.NewContentFlaggedError(goalText, categories)
	}

	risk, err := s.scorer.Score(profile)
	if err != nil {
		return nil, wrapCollaborator(err, "risk scoring")
	}

	completion, err := s.generator.Generate(ctx, BuildDailyPrompt(profile, metric, goals, risk))
	if err != nil {
		return nil, wrapCollaborator(err, "generation")
	}
	message := strings.TrimSpace(completion.Text)
	if message == "" {
		return nil, errors.NewMalformedOutputError("coach reply is empty")
	}

	sendTime := s.timing.SelectHour()

	log.Info("Recommendation created", "risk", risk, "send_time", sendTime)
	return &domain.Recommendation{
		ID:        s.newID(),
		Message:   message,
		SendTime:  sendTime,
		CreatedAt: s.now(),
	}, nil
}

type alertPayload struct {
	AlertTitle    string `json:"alert_title"`
	Summary       string `json:"summary"`
	SuggestedStep string `json:"suggested_step"`
}

// CheckForConcerningBehaviors runs the rule engine and, when something fired, asks the
// caretaker model for an alert. A nil alert with a nil error means no action is needed.
func (s *OrchestrationService) CheckForConcerningBehaviors(
	ctx context.Context,
	profile domain.UserProfile,
	metrics []domain.DailyMetric,
) (*domain.BehavioralRecommendation, error) {
	log := logger.WithFields("user_id", profile.UserID)

	violations, err := s.rules.Evaluate(metrics)
	if err != nil {
		return nil, err
	}
	log.Info("Internal rule violations", "violations", violations)

	if len(violations) == 0 {
		return nil, nil
	}

	completion, err := s.generator.Generate(ctx, BuildBehaviorPrompt(profile, metrics, violations))
	if err != nil {
		return nil, wrapCollaborator(err, "generation")
	}

	if strings.Contains(strings.ToLower(completion.Text), NoActionSentinel) {
		log.Info("No action needed")
		return nil, nil
	}

	payload, err := parseAlert(completion)
	if err != nil {
		return nil, err
	}

	alert := &domain.BehavioralRecommendation{
		ID:             s.newID(),
		UserID:         profile.UserID,
		CaretakerID:    profile.Caretaker(),
		AlertTitle:     payload.AlertTitle,
		Summary:        payload.Summary,
		SuggestedStep:  payload.SuggestedStep,
		TriggeredRules: violations,
		GeneratedAt:    s.now(),
	}
	log.Info("Alert generated", "violations", violations, "alert_title", alert.AlertTitle)
	return alert, nil
}

func parseAlert(completion *Completion) (*alertPayload, error) {
	raw := ""
	if completion.ToolCall != nil {
		if completion.ToolCall.Name != ToolIssueAlert {
			return nil, errors.NewMalformedOutputError(
				fmt.Sprintf("unexpected tool call %q", completion.ToolCall.Name))
		}
		raw = completion.ToolCall.Arguments
	} else {
		// Some providers inline the call as a JSON object in the text.
		raw = extractJSON(completion.Text)
	}
	if raw == "" {
		return nil, errors.NewMalformedOutputError("caretaker reply has neither an alert nor the no-action answer")
	}

	var payload alertPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, errors.NewMalformedOutputError(fmt.Sprintf("alert arguments are not valid JSON: %v", err))
	}
	if payload.AlertTitle == "" || payload.Summary == "" || payload.SuggestedStep == "" {
		return nil, errors.NewMalformedOutputError("alert is missing title, summary or suggested step")
	}
	return &payload, nil
}

// wrapCollaborator keeps AppErrors as they are and turns anything else into an internal error.
func wrapCollaborator(err error, step string) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.NewInternalError(fmt.Errorf("%s: %w", step, err))
}
