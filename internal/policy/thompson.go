package policy

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// DefaultHours are the starting hours of the 2-hour send windows.
var DefaultHours = []int{7, 9, 11, 13, 15, 17, 19, 21}

type arm struct {
	alpha float64
	beta  float64
}

// ThompsonSampler picks a send hour by sampling each hour's Beta posterior.
// The posterior is shared by every user of the instance.
type ThompsonSampler struct {
	hours   []int
	allowed map[int]struct{}

	mu   sync.RWMutex
	arms map[int]*arm

	rngMu sync.Mutex
	src   rand.Source
}

// Option configures a ThompsonSampler.
type Option func(*ThompsonSampler)

// WithSource sets the random source used for sampling. Tests pass a seeded one.
func WithSource(src rand.Source) Option {
	return func(t *ThompsonSampler) {
		t.src = src
	}
}

// NewThompsonSampler creates a sampler over the given hours. Empty hours means DefaultHours.
func NewThompsonSampler(hours []int, opts ...Option) (*ThompsonSampler, error) {
	if len(hours) == 0 {
		hours = DefaultHours
	}

	allowed := make(map[int]struct{}, len(hours))
	for _, h := range hours {
		if h < 0 || h > 23 {
			return nil, errors.NewConfigurationError(fmt.Sprintf("timing hour %d is outside 0..23", h))
		}
		if _, dup := allowed[h]; dup {
			return nil, errors.NewConfigurationError(fmt.Sprintf("timing hour %d is listed twice", h))
		}
		allowed[h] = struct{}{}
	}

	t := &ThompsonSampler{
		hours:   append([]int(nil), hours...),
		allowed: allowed,
		arms:    make(map[int]*arm, len(hours)),
		src:     rand.NewSource(uint64(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Hours returns the candidate hours in selection order.
func (t *ThompsonSampler) Hours() []int {
	return append([]int(nil), t.hours...)
}

// SelectHour draws one Beta sample per hour and returns the hour with the largest draw.
// Ties go to the hour listed first.
func (t *ThompsonSampler) SelectHour() int {
	params := t.snapshot()

	t.rngMu.Lock()
	defer t.rngMu.Unlock()

	best := t.hours[0]
	bestSample := -1.0
	for i, h := range t.hours {
		dist := distuv.Beta{Alpha: params[i].alpha, Beta: params[i].beta, Src: t.src}
		if s := dist.Rand(); s > bestSample {
			best, bestSample = h, s
		}
	}
	return best
}

// Update folds a binary reward into the posterior of hour.
func (t *ThompsonSampler) Update(hour, reward int) error {
	if _, ok := t.allowed[hour]; !ok {
		return errors.NewValidationError(fmt.Sprintf("hour %d is not a candidate send hour", hour))
	}
	if reward != 0 && reward != 1 {
		return errors.NewValidationError(fmt.Sprintf("reward must be 0 or 1, got %d", reward))
	}

	t.mu.Lock()
	a := t.armLocked(hour)
	a.alpha += float64(reward)
	a.beta += float64(1 - reward)
	alpha, beta := a.alpha, a.beta
	t.mu.Unlock()

	logger.Debug("Timing policy updated", "hour", hour, "reward", reward, "alpha", alpha, "beta", beta)
	return nil
}

// Posterior returns the (alpha, beta) pair for hour. Untouched hours report the uniform prior.
func (t *ThompsonSampler) Posterior(hour int) (float64, float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if a, ok := t.arms[hour]; ok {
		return a.alpha, a.beta
	}
	return 1, 1
}

func (t *ThompsonSampler) snapshot() []arm {
	t.mu.RLock()
	defer t.mu.RUnlock()

	params := make([]arm, len(t.hours))
	for i, h := range t.hours {
		if a, ok := t.arms[h]; ok {
			params[i] = *a
		} else {
			params[i] = arm{alpha: 1, beta: 1}
		}
	}
	return params
}

// armLocked lazily creates the uniform prior. Caller holds mu.
func (t *ThompsonSampler) armLocked(hour int) *arm {
	a, ok := t.arms[hour]
	if !ok {
		a = &arm{alpha: 1, beta: 1}
		t.arms[hour] = a
	}
	return a
}
