package handlers

import (
	"github.com/vladimiradmaev/coaching-engine/internal/bot/menus"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/state"
	"github.com/vladimiradmaev/coaching-engine/internal/domain"
)

// PolicyResolver finds the shared timing policy feedback should update.
type PolicyResolver interface {
	Lookup(policyType domain.TimingPolicyType) (domain.TimingPolicy, error)
}

// Dependencies holds all service dependencies for handlers
type Dependencies struct {
	API      menus.Sender
	State    state.StateManager
	Policies PolicyResolver
}

// maxCaretakerIDLength bounds ids typed into the chat.
const maxCaretakerIDLength = 64
