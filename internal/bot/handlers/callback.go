package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/bot/keyboards"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// CallbackHandler handles callback query messages
type CallbackHandler struct {
	deps Dependencies
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(deps Dependencies) *CallbackHandler {
	return &CallbackHandler{deps: deps}
}

// Handle processes a callback query. Feedback buttons feed the timing policy.
func (h *CallbackHandler) Handle(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if !keyboards.IsFeedbackData(query.Data) {
		return h.answer(query, "")
	}

	feedback, err := keyboards.ParseFeedbackData(query.Data)
	if err != nil {
		logger.Warn("Ignoring malformed feedback", "data", query.Data, "error", err)
		return h.answer(query, "Sorry, that button has expired.")
	}

	policy, err := h.deps.Policies.Lookup(feedback.PolicyType)
	if err != nil {
		logger.Warn("Feedback for unknown policy", "policy_type", feedback.PolicyType, "error", err)
		return h.answer(query, "Sorry, that button has expired.")
	}
	if err := policy.Update(feedback.Hour, feedback.Reward); err != nil {
		logger.Warn("Rejected feedback", "hour", feedback.Hour, "reward", feedback.Reward, "error", err)
		return h.answer(query, "Sorry, that button has expired.")
	}

	logger.Info("Timing feedback recorded",
		"policy_type", feedback.PolicyType,
		"hour", feedback.Hour,
		"reward", feedback.Reward,
	)

	if err := h.answer(query, "Thanks for the feedback!"); err != nil {
		return err
	}
	if query.Message != nil && query.Message.Chat != nil {
		edit := tgbotapi.NewEditMessageReplyMarkup(query.Message.Chat.ID, query.Message.MessageID, keyboards.RemoveKeyboard())
		if _, err := h.deps.API.Request(edit); err != nil {
			return fmt.Errorf("failed to remove feedback keyboard: %w", err)
		}
	}
	return nil
}

func (h *CallbackHandler) answer(query *tgbotapi.CallbackQuery, text string) error {
	if _, err := h.deps.API.Request(tgbotapi.NewCallback(query.ID, text)); err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}
