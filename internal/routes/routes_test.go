package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/handlers"
	"github.com/vladimiradmaev/coaching-engine/internal/policy"
	"github.com/vladimiradmaev/coaching-engine/internal/services"
)

type fakeOrchestrator struct {
	dailyCalls    int
	behaviorCalls int
	rec           *domain.Recommendation
	alert         *domain.BehavioralRecommendation
	err           error
}

func (f *fakeOrchestrator) CreateDailyRecommendation(_ context.Context, _ domain.UserProfile, _ domain.DailyMetric, _ []domain.Goal) (*domain.Recommendation, error) {
	f.dailyCalls++
	return f.rec, f.err
}

func (f *fakeOrchestrator) CheckForConcerningBehaviors(_ context.Context, _ domain.UserProfile, _ []domain.DailyMetric) (*domain.BehavioralRecommendation, error) {
	f.behaviorCalls++
	return f.alert, f.err
}

type fakeNotifier struct {
	alerts    int
	forwarded int
	err       error
}

func (f *fakeNotifier) NotifyAlert(context.Context, domain.UserProfile, *domain.BehavioralRecommendation) error {
	f.alerts++
	return f.err
}

func (f *fakeNotifier) ForwardRecommendation(context.Context, domain.UserProfile, *domain.Recommendation, domain.TimingPolicyType) error {
	f.forwarded++
	return f.err
}

type apiFixture struct {
	orch     *fakeOrchestrator
	notifier *fakeNotifier
	registry *policy.Registry
	router   http.Handler
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	registry, err := policy.NewRegistry(nil, policy.WithSource(rand.NewSource(1)))
	require.NoError(t, err)

	f := &apiFixture{
		orch:     &fakeOrchestrator{},
		notifier: &fakeNotifier{},
		registry: registry,
	}
	detector := services.NewContentDetectionService(staticClassifier{}, nil, 0)
	h := handlers.New(f.orch, registry, detector, f.notifier, domain.TimingPolicyThompsonSampling)
	f.router = NewRouter(h, []string{"*"})
	return f
}

type staticClassifier struct{}

func (staticClassifier) Classify(context.Context, string) (domain.ModerationResult, error) {
	return domain.ModerationResult{Categories: []domain.Category{}}, nil
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

const profileJSON = `{"user_id":"user-1","first_name":"Lily","age":10,"preferences":["dancing"],"health_conditions":[]}`

func metricJSON(userID string, daysAgo int) string {
	date := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -daysAgo).Format(time.RFC3339)
	return `{"user_id":"` + userID + `","date":"` + date + `","steps":5000,"active_minutes":30,"calories_in":2000,"sleep_hours":8}`
}

func metricsJSON(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = metricJSON("user-1", i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestCreateRecommendation(t *testing.T) {
	f := newAPI(t)
	created := time.Date(2025, 3, 20, 9, 0, 0, 0, time.UTC)
	f.orch.rec = &domain.Recommendation{ID: "rec-1", Message: "Great job!", SendTime: 9, CreatedAt: created}

	body := `{"profile":` + profileJSON + `,"daily_metrics":` + metricJSON("user-1", 0) +
		`,"goals":[{"id":"g1","user_id":"user-1","description":"Walk","target_value":"30","target_unit":"min","metric":"active_minutes"}]}`
	rec := f.do(t, http.MethodPost, "/recommendation/", body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got domain.Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, "Great job!", got.Message)
	assert.Equal(t, 9, got.SendTime)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, 1, f.notifier.forwarded)
}

func TestCreateRecommendation_BadRequests(t *testing.T) {
	tests := map[string]string{
		"missing profile":  `{"daily_metrics":` + metricJSON("user-1", 0) + `,"goals":[]}`,
		"missing metrics":  `{"profile":` + profileJSON + `,"goals":[]}`,
		"user mismatch":    `{"profile":` + profileJSON + `,"daily_metrics":` + metricJSON("user-2", 0) + `,"goals":[]}`,
		"invalid json":     `{"profile":`,
		"age out of range": `{"profile":{"user_id":"user-1","first_name":"A","age":25},"daily_metrics":` + metricJSON("user-1", 0) + `}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			f := newAPI(t)
			rec := f.do(t, http.MethodPost, "/recommendation/", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Zero(t, f.orch.dailyCalls)
		})
	}
}

func TestCreateRecommendation_Flagged(t *testing.T) {
	f := newAPI(t)
	f.orch.err = errors.NewContentFlaggedError("I want to die", []string{"self-harm"})

	body := `{"profile":` + profileJSON + `,"daily_metrics":` + metricJSON("user-1", 0) + `,"goals":[]}`
	rec := f.do(t, http.MethodPost, "/recommendation/", body)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":["self-harm"]}`, rec.Body.String())
	assert.Zero(t, f.notifier.forwarded)
}

func TestCreateRecommendation_InternalErrorHidesDetails(t *testing.T) {
	f := newAPI(t)
	f.orch.err = errors.NewMalformedOutputError("secret internals")

	body := `{"profile":` + profileJSON + `,"daily_metrics":` + metricJSON("user-1", 0) + `,"goals":[]}`
	rec := f.do(t, http.MethodPost, "/recommendation/", body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestCreateRecommendation_NotifierFailureIsIgnored(t *testing.T) {
	f := newAPI(t)
	f.orch.rec = &domain.Recommendation{ID: "rec-1", Message: "hi", SendTime: 7}
	f.notifier.err = assert.AnError

	body := `{"profile":` + profileJSON + `,"daily_metrics":` + metricJSON("user-1", 0) + `,"goals":[]}`
	rec := f.do(t, http.MethodPost, "/recommendation/", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetByIDNotImplemented(t *testing.T) {
	f := newAPI(t)
	assert.Equal(t, http.StatusNotImplemented, f.do(t, http.MethodGet, "/recommendation/abc", "").Code)
	assert.Equal(t, http.StatusNotImplemented, f.do(t, http.MethodGet, "/behavior/abc", "").Code)
}

func TestCreateBehavioralAnalysis(t *testing.T) {
	f := newAPI(t)
	f.orch.alert = &domain.BehavioralRecommendation{
		ID:             "alert-1",
		UserID:         "user-1",
		CaretakerID:    "UNKNOWN",
		AlertTitle:     "Short sleep",
		Summary:        "s",
		SuggestedStep:  "x",
		TriggeredRules: []domain.RuleID{domain.RuleSleepDebt},
	}

	rec := f.do(t, http.MethodPost, "/behavior/", `{"profile":`+profileJSON+`,"metrics":`+metricsJSON(7)+`}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got domain.BehavioralRecommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []domain.RuleID{domain.RuleSleepDebt}, got.TriggeredRules)
	assert.Equal(t, 1, f.notifier.alerts)
}

func TestCreateBehavioralAnalysis_NoAlert(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodPost, "/behavior/", `{"profile":`+profileJSON+`,"metrics":`+metricsJSON(8)+`}`)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("x-empty-response"))
	assert.Empty(t, rec.Body.String())
	assert.Zero(t, f.notifier.alerts)
}

func TestCreateBehavioralAnalysis_TooFewMetrics(t *testing.T) {
	for _, n := range []int{0, 1, 6} {
		f := newAPI(t)
		rec := f.do(t, http.MethodPost, "/behavior/", `{"profile":`+profileJSON+`,"metrics":`+metricsJSON(n)+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "n=%d", n)
		assert.Zero(t, f.orch.behaviorCalls)
	}
}

func TestCreateBehavioralAnalysis_UserIDMismatch(t *testing.T) {
	tests := map[string]string{
		"all foreign": func() string {
			parts := make([]string, 7)
			for i := range parts {
				parts[i] = metricJSON("someone-else", i)
			}
			return "[" + strings.Join(parts, ",") + "]"
		}(),
		"one foreign": "[" + strings.TrimSuffix(strings.TrimPrefix(metricsJSON(7), "["), "]") +
			"," + metricJSON("someone-else", 7) + "]",
	}
	for name, metrics := range tests {
		t.Run(name, func(t *testing.T) {
			f := newAPI(t)
			rec := f.do(t, http.MethodPost, "/behavior/", `{"profile":`+profileJSON+`,"metrics":`+metrics+`}`)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"detail":"user_id mismatch between profile and metrics"}`, rec.Body.String())
			assert.Zero(t, f.orch.behaviorCalls)
			assert.Zero(t, f.notifier.alerts)
		})
	}
}

func TestUpdatePolicyReward(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodPut, "/timing/", `{"policy_type":"thompson_sampling","hour":9,"reward":1,"user_id":"user-1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	p, err := f.registry.Lookup(domain.TimingPolicyThompsonSampling)
	require.NoError(t, err)
	alpha, beta := p.(*policy.ThompsonSampler).Posterior(9)
	assert.Equal(t, 2.0, alpha)
	assert.Equal(t, 1.0, beta)
}

func TestUpdatePolicyReward_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown policy":    `{"policy_type":"round_robin","hour":9,"reward":1}`,
		"reward not binary": `{"policy_type":"thompson_sampling","hour":9,"reward":3}`,
		"hour not a window": `{"policy_type":"thompson_sampling","hour":8,"reward":1}`,
		"hour out of range": `{"policy_type":"thompson_sampling","hour":30,"reward":1}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			f := newAPI(t)
			rec := f.do(t, http.MethodPut, "/timing/", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetTimingForPolicy(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodGet, "/timing/thompson_sampling/?user_id=user-1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got domain.TimingPolicyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.TimingPolicyThompsonSampling, got.PolicyType)
	assert.Contains(t, policy.DefaultHours, got.Hour)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "user-1", *got.UserID)
	assert.False(t, got.GeneratedAt.IsZero())
}

func TestGetTimingForPolicy_Unknown(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodGet, "/timing/epsilon_greedy/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectTextContent(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodPost, "/moderation/textContentDetection/", `{"content":"I want to starve myself"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"flagged":true,"categories":["self-harm"]}`, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/moderation/textContentDetection/?content=walk%20the%20dog", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"flagged":false,"categories":[]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	f := newAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/recommendation/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
