package handlers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// Orchestrator runs the two recommendation flows.
type Orchestrator interface {
	CreateDailyRecommendation(ctx context.Context, profile domain.UserProfile, metric domain.DailyMetric, goals []domain.Goal) (*domain.Recommendation, error)
	CheckForConcerningBehaviors(ctx context.Context, profile domain.UserProfile, metrics []domain.DailyMetric) (*domain.BehavioralRecommendation, error)
}

// PolicyResolver finds the shared timing policy for a type.
type PolicyResolver interface {
	Lookup(policyType domain.TimingPolicyType) (domain.TimingPolicy, error)
}

// Notifier pushes results to the caretaker channel. Failures never fail a request.
type Notifier interface {
	NotifyAlert(ctx context.Context, profile domain.UserProfile, alert *domain.BehavioralRecommendation) error
	ForwardRecommendation(ctx context.Context, profile domain.UserProfile, rec *domain.Recommendation, policyType domain.TimingPolicyType) error
}

// Handler serves the coaching API.
type Handler struct {
	orchestrator Orchestrator
	policies     PolicyResolver
	detector     domain.ContentDetector
	notifier     Notifier
	policyType   domain.TimingPolicyType

	validate   *validator.Validate
	errHandler *errors.Handler
	now        func() time.Time
}

// New creates the handler. notifier may be nil. policyType is the policy the
// orchestrator selects send hours with, so forwarded feedback lands on the same posterior.
func New(
	orchestrator Orchestrator,
	policies PolicyResolver,
	detector domain.ContentDetector,
	notifier Notifier,
	policyType domain.TimingPolicyType,
) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		policies:     policies,
		detector:     detector,
		notifier:     notifier,
		policyType:   policyType,
		validate:     validator.New(),
		errHandler:   errors.NewHandler(logger.GetLogger()),
		now:          time.Now,
	}
}
