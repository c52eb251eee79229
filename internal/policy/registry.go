package policy

import (
	"strings"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/errors"
)

// Registry resolves a timing policy type to the single shared instance for it.
type Registry struct {
	policies map[domain.TimingPolicyType]domain.TimingPolicy
}

// NewRegistry builds the registry with one Thompson sampler over hours.
func NewRegistry(hours []int, opts ...Option) (*Registry, error) {
	sampler, err := NewThompsonSampler(hours, opts...)
	if err != nil {
		return nil, err
	}
	return &Registry{
		policies: map[domain.TimingPolicyType]domain.TimingPolicy{
			domain.TimingPolicyThompsonSampling: sampler,
		},
	}, nil
}

// ParseType validates a raw policy type against the registered set.
func ParseType(raw string) (domain.TimingPolicyType, error) {
	switch t := domain.TimingPolicyType(strings.TrimSpace(raw)); t {
	case domain.TimingPolicyThompsonSampling:
		return t, nil
	default:
		return "", errors.NewUnknownPolicyTypeError("timing policy", raw)
	}
}

// Lookup returns the policy for policyType or a configuration error.
func (r *Registry) Lookup(policyType domain.TimingPolicyType) (domain.TimingPolicy, error) {
	p, ok := r.policies[policyType]
	if !ok {
		return nil, errors.NewUnknownPolicyTypeError("timing policy", string(policyType))
	}
	return p, nil
}

// LookupString parses raw then looks it up.
func (r *Registry) LookupString(raw string) (domain.TimingPolicy, error) {
	t, err := ParseType(raw)
	if err != nil {
		return nil, err
	}
	return r.Lookup(t)
}
