package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// DefaultModerationModel is used when no model is configured.
const DefaultModerationModel = "omni-moderation-latest"

// categoryPatterns is the local prefilter. It only covers a subset of what the
// external classifier detects, so a miss here says nothing about safety.
var categoryPatterns = map[domain.Category][]*regexp.Regexp{
	domain.CategoryHarassment: {
		regexp.MustCompile(`(?i)\b(stupid|idiot|dumb|moron)\b`),
		regexp.MustCompile(`(?i)\byou suck\b`),
	},
	domain.CategoryHarassmentThreatening: {
		regexp.MustCompile(`(?i)\bkill you\b`),
		regexp.MustCompile(`(?i)\bI[’']ll (beat|smash) you\b`),
	},
	domain.CategoryHate: {
		regexp.MustCompile(`(?i)\b(nigg[ae]r|faggot|kikes)\b`),
		regexp.MustCompile(`(?i)\bkill all (women|blacks|jews)\b`),
	},
	domain.CategoryHateThreatening: {
		regexp.MustCompile(`(?i)\b(exterminate|annihilate) (women|blacks|jews)\b`),
	},
	domain.CategoryIllicit: {
		regexp.MustCompile(`(?i)\bhow to shoplift\b`),
		regexp.MustCompile(`(?i)\bbuild a bomb\b`),
	},
	domain.CategoryIllicitViolent: {
		regexp.MustCompile(`(?i)\bwhere to get a gun\b`),
		regexp.MustCompile(`(?i)\bkill for hire\b`),
	},
	domain.CategorySelfHarm: {
		regexp.MustCompile(`(?i)\b(I want to die|cut myself|starve myself)\b`),
	},
	domain.CategorySelfHarmIntent: {
		regexp.MustCompile(`(?i)\bI am going to kill myself\b`),
	},
	domain.CategorySelfHarmInstructions: {
		regexp.MustCompile(`(?i)\bhow to kill myself\b`),
		regexp.MustCompile(`(?i)\bways to cut yourself\b`),
	},
	domain.CategorySexual: {
		regexp.MustCompile(`(?i)\bsexual act\b`),
		regexp.MustCompile(`(?i)\bexplicit sex\b`),
	},
	domain.CategorySexualMinors: {
		regexp.MustCompile(`(?i)\bunder 18\b.*\bsex\b`),
	},
	domain.CategoryViolence: {
		regexp.MustCompile(`(?i)\b(murder|assault|rape)\b`),
	},
	domain.CategoryViolenceGraphic: {
		regexp.MustCompile(`(?i)\b(gore|blood spurt|disembowel)\b`),
	},
}

// Classifier is the external moderation model.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.ModerationResult, error)
}

// ContentDetectionService is the content safety gate: a keyword prefilter in front of
// an external classifier whose verdicts are cached.
type ContentDetectionService struct {
	classifier Classifier
	cache      VerdictCache
	ttl        time.Duration
}

// NewContentDetectionService creates the gate. cache may be nil to disable caching.
// A nil classifier leaves the keyword prefilter as the only check.
func NewContentDetectionService(classifier Classifier, cache VerdictCache, ttl time.Duration) *ContentDetectionService {
	return &ContentDetectionService{
		classifier: classifier,
		cache:      cache,
		ttl:        ttl,
	}
}

// Detect flags text that violates the category taxonomy. Empty text is never flagged.
func (s *ContentDetectionService) Detect(ctx context.Context, text string) (domain.ModerationResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ModerationResult{Categories: []domain.Category{}}, nil
	}

	if matched := DetectByKeywords(text); len(matched) > 0 {
		logger.Info("Content matched keyword prefilter", "categories", matched)
		return domain.ModerationResult{Flagged: true, Categories: matched}, nil
	}

	if s.classifier == nil {
		return domain.ModerationResult{Categories: []domain.Category{}}, nil
	}

	key := verdictKey(text)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warn("Moderation cache read failed", "error", err)
		} else if ok {
			return cached, nil
		}
	}

	result, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return domain.ModerationResult{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			logger.Warn("Moderation cache write failed", "error", err)
		}
	}
	return result, nil
}

// DetectByKeywords runs the local prefilter and returns matched categories in taxonomy order.
func DetectByKeywords(text string) []domain.Category {
	var matched []domain.Category
	for _, category := range domain.Categories {
		for _, pattern := range categoryPatterns[category] {
			if pattern.MatchString(text) {
				matched = append(matched, category)
				break
			}
		}
	}
	return matched
}

func verdictKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// OpenAIModerator classifies text with the OpenAI moderation endpoint.
type OpenAIModerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIModerator(client *openai.Client, model string) *OpenAIModerator {
	if model == "" {
		model = DefaultModerationModel
	}
	return &OpenAIModerator{client: client, model: model}
}

func (m *OpenAIModerator) Classify(ctx context.Context, text string) (domain.ModerationResult, error) {
	resp, err := m.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: m.model,
	})
	if err != nil {
		return domain.ModerationResult{}, errors.NewExternalAPIError(err, "OpenAI moderation")
	}
	if len(resp.Results) == 0 {
		return domain.ModerationResult{}, errors.NewMalformedOutputError("moderation response has no results")
	}

	r := resp.Results[0]
	return domain.ModerationResult{
		Flagged:    r.Flagged,
		Categories: categoriesFromOpenAI(r.Categories),
	}, nil
}

// categoriesFromOpenAI maps the flags go-openai decodes. ResultCategories carries no
// illicit fields, so illicit verdicts keep Flagged but list no category.
func categoriesFromOpenAI(c openai.ResultCategories) []domain.Category {
	set := map[domain.Category]bool{
		domain.CategoryHarassment:            c.Harassment,
		domain.CategoryHarassmentThreatening: c.HarassmentThreatening,
		domain.CategoryHate:                  c.Hate,
		domain.CategoryHateThreatening:       c.HateThreatening,
		domain.CategorySelfHarm:              c.SelfHarm,
		domain.CategorySelfHarmIntent:        c.SelfHarmIntent,
		domain.CategorySelfHarmInstructions:  c.SelfHarmInstructions,
		domain.CategorySexual:                c.Sexual,
		domain.CategorySexualMinors:          c.SexualMinors,
		domain.CategoryViolence:              c.Violence,
		domain.CategoryViolenceGraphic:       c.ViolenceGraphic,
	}

	categories := make([]domain.Category, 0)
	for _, category := range domain.Categories {
		if set[category] {
			categories = append(categories, category)
		}
	}
	return categories
}
