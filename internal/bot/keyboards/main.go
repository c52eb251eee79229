package keyboards

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vladimiradmaev/coaching-engine/internal/domain"
)

const feedbackPrefix = "fb"

// Feedback is the reward a caretaker gives for a delivered send hour.
type Feedback struct {
	PolicyType domain.TimingPolicyType
	Hour       int
	Reward     int
}

// FeedbackData encodes callback data as fb:<policy>:<hour>:<reward>.
// Telegram caps callback data at 64 bytes, which the closed policy set stays well under.
func FeedbackData(policyType domain.TimingPolicyType, hour, reward int) string {
	return fmt.Sprintf("%s:%s:%d:%d", feedbackPrefix, policyType, hour, reward)
}

// IsFeedbackData reports whether callback data came from a feedback keyboard.
func IsFeedbackData(data string) bool {
	return strings.HasPrefix(data, feedbackPrefix+":")
}

// ParseFeedbackData decodes data produced by FeedbackData.
func ParseFeedbackData(data string) (Feedback, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 4 || parts[0] != feedbackPrefix {
		return Feedback{}, fmt.Errorf("malformed feedback data %q", data)
	}
	if parts[1] == "" {
		return Feedback{}, fmt.Errorf("feedback data %q has no policy type", data)
	}
	hour, err := strconv.Atoi(parts[2])
	if err != nil {
		return Feedback{}, fmt.Errorf("invalid hour in feedback data %q: %w", data, err)
	}
	reward, err := strconv.Atoi(parts[3])
	if err != nil {
		return Feedback{}, fmt.Errorf("invalid reward in feedback data %q: %w", data, err)
	}
	return Feedback{
		PolicyType: domain.TimingPolicyType(parts[1]),
		Hour:       hour,
		Reward:     reward,
	}, nil
}

// FeedbackKeyboard asks whether a recommendation arrived at a good time.
func FeedbackKeyboard(policyType domain.TimingPolicyType, hour int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍 Good time", FeedbackData(policyType, hour, 1)),
			tgbotapi.NewInlineKeyboardButtonData("👎 Bad time", FeedbackData(policyType, hour, 0)),
		),
	)
}

// RemoveKeyboard is the empty markup used to strip buttons once they were answered.
func RemoveKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}
