package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/bot/handlers"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/keyboards"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/menus"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/state"
	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// Bot delivers caretaker alerts over Telegram and collects timing feedback.
type Bot struct {
	api           *tgbotapi.BotAPI
	updateHandler *handlers.UpdateHandler
	notifier      *Notifier
}

// NewBot authorizes against the Bot API.
func NewBot(token string, stateManager state.StateManager, policies handlers.PolicyResolver) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	logger.Info("Bot authorized", "account", api.Self.UserName)
	return &Bot{
		api: api,
		updateHandler: handlers.NewUpdateHandler(handlers.Dependencies{
			API:      api,
			State:    stateManager,
			Policies: policies,
		}),
		notifier: NewNotifier(api, stateManager),
	}, nil
}

// Notifier returns the notifier bound to this bot's API.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	logger.Info("Bot is now listening for updates")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Bot is shutting down")
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.updateHandler.Handle(ctx, update); err != nil {
				logger.Error("Error handling update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// Notifier pushes orchestration results to the chat registered for a caretaker.
// Profiles whose caretaker has no chat are skipped silently.
type Notifier struct {
	api   menus.Sender
	state state.StateManager
}

// NewNotifier creates a notifier over any Sender.
func NewNotifier(api menus.Sender, stateManager state.StateManager) *Notifier {
	return &Notifier{api: api, state: stateManager}
}

// NotifyAlert sends a behavioural alert to the caretaker.
func (n *Notifier) NotifyAlert(ctx context.Context, profile domain.UserProfile, alert *domain.BehavioralRecommendation) error {
	if alert == nil {
		return nil
	}
	caretakerID := alert.CaretakerID
	if caretakerID == "" {
		caretakerID = profile.Caretaker()
	}

	chatID, ok, err := n.chatFor(ctx, caretakerID)
	if err != nil || !ok {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, FormatAlert(profile, alert))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send alert: %w", err)
	}
	logger.Info("Alert delivered", "caretaker_id", caretakerID, "alert_id", alert.ID)
	return nil
}

// ForwardRecommendation sends the daily message with feedback buttons for its send hour.
func (n *Notifier) ForwardRecommendation(ctx context.Context, profile domain.UserProfile, rec *domain.Recommendation, policyType domain.TimingPolicyType) error {
	if rec == nil {
		return nil
	}
	chatID, ok, err := n.chatFor(ctx, profile.Caretaker())
	if err != nil || !ok {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, FormatRecommendation(profile, rec))
	msg.ReplyMarkup = keyboards.FeedbackKeyboard(policyType, rec.SendTime)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to forward recommendation: %w", err)
	}
	logger.Info("Recommendation forwarded", "user_id", profile.UserID, "recommendation_id", rec.ID, "send_time", rec.SendTime)
	return nil
}

func (n *Notifier) chatFor(ctx context.Context, caretakerID string) (int64, bool, error) {
	if caretakerID == "" || caretakerID == domain.DefaultCaretakerID {
		return 0, false, nil
	}
	chatID, ok, err := n.state.ChatForCaretaker(ctx, caretakerID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to look up caretaker chat: %w", err)
	}
	if !ok {
		logger.Debug("No chat registered for caretaker", "caretaker_id", caretakerID)
	}
	return chatID, ok, nil
}

// FormatAlert renders an alert as plain text.
func FormatAlert(profile domain.UserProfile, alert *domain.BehavioralRecommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s\n\n", alert.AlertTitle)
	if profile.FirstName != "" {
		fmt.Fprintf(&b, "About %s:\n", profile.FirstName)
	}
	b.WriteString(alert.Summary)
	fmt.Fprintf(&b, "\n\n👉 Suggested step: %s", alert.SuggestedStep)
	if len(alert.TriggeredRules) > 0 {
		rules := make([]string, len(alert.TriggeredRules))
		for i, r := range alert.TriggeredRules {
			rules[i] = string(r)
		}
		fmt.Fprintf(&b, "\n\nSignals: %s", strings.Join(rules, ", "))
	}
	return b.String()
}

// FormatRecommendation renders the daily message as plain text.
func FormatRecommendation(profile domain.UserProfile, rec *domain.Recommendation) string {
	return fmt.Sprintf("💬 Today's message for %s (suggested send time %02d:00)\n\n%s\n\nWas this a good time to receive it?",
		profile.FirstName, rec.SendTime, rec.Message)
}
