package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// UpdateHandler handles telegram updates and coordinates other handlers
type UpdateHandler struct {
	callbackHandler *CallbackHandler
	commandHandler  *CommandHandler
	textHandler     *TextHandler
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(deps Dependencies) *UpdateHandler {
	return &UpdateHandler{
		callbackHandler: NewCallbackHandler(deps),
		commandHandler:  NewCommandHandler(deps),
		textHandler:     NewTextHandler(deps),
	}
}

// Handle processes a telegram update
func (h *UpdateHandler) Handle(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return h.callbackHandler.Handle(ctx, update.CallbackQuery)
	}

	message := update.Message
	if message == nil || message.Chat == nil {
		return nil
	}

	logger.Debug("Received message", "chat_id", message.Chat.ID, "is_command", message.IsCommand())

	if message.IsCommand() {
		return h.commandHandler.Handle(ctx, message)
	}
	if message.Text != "" {
		return h.textHandler.Handle(ctx, message)
	}
	return nil
}
