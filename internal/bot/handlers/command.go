package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/bot/menus"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/state"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// CommandHandler handles bot commands
type CommandHandler struct {
	deps Dependencies
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(deps Dependencies) *CommandHandler {
	return &CommandHandler{deps: deps}
}

// Handle processes a command message
func (h *CommandHandler) Handle(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	logger.Info("Handling command", "command", message.Command(), "chat_id", chatID)

	switch message.Command() {
	case "start":
		return h.handleStart(ctx, chatID, strings.TrimSpace(message.CommandArguments()))
	case "stop":
		return h.handleStop(ctx, chatID)
	case "help":
		return menus.SendHelp(h.deps.API, chatID)
	default:
		return menus.SendText(h.deps.API, chatID, "Unknown command. Use /help to see the available commands.")
	}
}

func (h *CommandHandler) handleStart(ctx context.Context, chatID int64, caretakerID string) error {
	if caretakerID == "" {
		if err := h.deps.State.SetUserState(ctx, chatID, state.WaitingForCaretakerID); err != nil {
			return fmt.Errorf("failed to set chat state: %w", err)
		}
		return menus.SendWelcome(h.deps.API, chatID)
	}
	return linkCaretaker(ctx, h.deps, chatID, caretakerID)
}

func (h *CommandHandler) handleStop(ctx context.Context, chatID int64) error {
	caretakerID, err := h.deps.State.UnregisterChat(ctx, chatID)
	if err != nil {
		return fmt.Errorf("failed to unregister chat: %w", err)
	}
	if err := h.deps.State.SetUserState(ctx, chatID, state.None); err != nil {
		return fmt.Errorf("failed to reset chat state: %w", err)
	}
	logger.Info("Chat unlinked", "chat_id", chatID, "caretaker_id", caretakerID)
	return menus.SendUnlinked(h.deps.API, chatID, caretakerID)
}

const alreadyLinkedText = "This caretaker is already linked to another chat. Send /stop in that chat first, then try again."

// linkCaretaker registers the chat for caretakerID and confirms it to the user.
// A caretaker bound to another chat stays there until that chat sends /stop.
func linkCaretaker(ctx context.Context, deps Dependencies, chatID int64, caretakerID string) error {
	if strings.ContainsAny(caretakerID, " \t\n") || len(caretakerID) > maxCaretakerIDLength {
		return menus.SendText(deps.API, chatID, "That does not look like a caretaker id. Please send the id exactly as it appears in your account.")
	}

	boundChat, bound, err := deps.State.ChatForCaretaker(ctx, caretakerID)
	if err != nil {
		return fmt.Errorf("failed to look up caretaker chat: %w", err)
	}
	if bound && boundChat != chatID {
		logger.Warn("Refused to relink caretaker bound to another chat", "chat_id", chatID, "caretaker_id", caretakerID)
		if err := deps.State.SetUserState(ctx, chatID, state.None); err != nil {
			return fmt.Errorf("failed to reset chat state: %w", err)
		}
		return menus.SendText(deps.API, chatID, alreadyLinkedText)
	}

	if err := deps.State.RegisterCaretaker(ctx, caretakerID, chatID); err != nil {
		return fmt.Errorf("failed to register caretaker: %w", err)
	}
	if err := deps.State.SetUserState(ctx, chatID, state.None); err != nil {
		return fmt.Errorf("failed to reset chat state: %w", err)
	}
	logger.Info("Chat linked", "chat_id", chatID, "caretaker_id", caretakerID)
	return menus.SendLinked(deps.API, chatID, caretakerID)
}
