package state

import (
	"context"
	"sync"
)

// Conversation states
const (
	None                  = "none"
	WaitingForCaretakerID = "waiting_for_caretaker_id"
)

// StateManager tracks which chat receives a caretaker's messages and where each
// chat is in the registration dialog.
type StateManager interface {
	RegisterCaretaker(ctx context.Context, caretakerID string, chatID int64) error
	UnregisterChat(ctx context.Context, chatID int64) (string, error)
	ChatForCaretaker(ctx context.Context, caretakerID string) (int64, bool, error)
	SetUserState(ctx context.Context, chatID int64, state string) error
	GetUserState(ctx context.Context, chatID int64) string
}

// Manager is the in-memory StateManager.
type Manager struct {
	mu              sync.RWMutex
	caretakerToChat map[string]int64
	chatToCaretaker map[int64]string
	userStates      map[int64]string
}

// NewManager creates a new state manager
func NewManager() *Manager {
	return &Manager{
		caretakerToChat: make(map[string]int64),
		chatToCaretaker: make(map[int64]string),
		userStates:      make(map[int64]string),
	}
}

// RegisterCaretaker links caretakerID to chatID. A chat follows one caretaker at a time.
func (m *Manager) RegisterCaretaker(_ context.Context, caretakerID string, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if previous, ok := m.chatToCaretaker[chatID]; ok && previous != caretakerID {
		delete(m.caretakerToChat, previous)
	}
	if previousChat, ok := m.caretakerToChat[caretakerID]; ok && previousChat != chatID {
		delete(m.chatToCaretaker, previousChat)
	}
	m.caretakerToChat[caretakerID] = chatID
	m.chatToCaretaker[chatID] = caretakerID
	return nil
}

// UnregisterChat removes the chat's link and returns the caretaker it served.
func (m *Manager) UnregisterChat(_ context.Context, chatID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	caretakerID, ok := m.chatToCaretaker[chatID]
	if !ok {
		return "", nil
	}
	delete(m.chatToCaretaker, chatID)
	delete(m.caretakerToChat, caretakerID)
	return caretakerID, nil
}

func (m *Manager) ChatForCaretaker(_ context.Context, caretakerID string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chatID, ok := m.caretakerToChat[caretakerID]
	return chatID, ok, nil
}

// SetUserState sets the dialog state for a chat
func (m *Manager) SetUserState(_ context.Context, chatID int64, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == None {
		delete(m.userStates, chatID)
		return nil
	}
	m.userStates[chatID] = state
	return nil
}

// GetUserState gets the dialog state for a chat
func (m *Manager) GetUserState(_ context.Context, chatID int64) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, exists := m.userStates[chatID]
	if !exists {
		return None
	}
	return state
}
