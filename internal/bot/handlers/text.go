package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/bot/menus"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/state"
)

// TextHandler handles free text, which only means something mid-registration.
type TextHandler struct {
	deps Dependencies
}

// NewTextHandler creates a new text handler
func NewTextHandler(deps Dependencies) *TextHandler {
	return &TextHandler{deps: deps}
}

// Handle processes a text message
func (h *TextHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID

	switch h.deps.State.GetUserState(ctx, chatID) {
	case state.WaitingForCaretakerID:
		caretakerID := strings.TrimSpace(message.Text)
		return linkCaretaker(ctx, h.deps, chatID, caretakerID)
	default:
		return menus.SendText(h.deps.API, chatID, "Use /start <caretaker id> to link this chat, or /help for more.")
	}
}
