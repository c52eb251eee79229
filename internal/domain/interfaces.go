package domain

import (
	"context"
)

// RiskScorer maps a profile to a risk in [0,1].
type RiskScorer interface {
	Score(profile UserProfile) (float64, error)
}

// TimingPolicy picks a delivery hour and learns from rewards.
// Implementations must be safe for concurrent use.
type TimingPolicy interface {
	SelectHour() int
	Update(hour, reward int) error
}

// ContentDetector is the content safety gate.
type ContentDetector interface {
	Detect(ctx context.Context, text string) (ModerationResult, error)
}
