package menus

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the subset of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

const helpText = `Available commands:
/start <caretaker id> - Link this chat to a caretaker account
/stop - Stop receiving alerts in this chat
/help - Show this message

Once linked, this chat receives behaviour alerts and daily coaching messages.
Use the 👍 / 👎 buttons under a coaching message to tell us whether it arrived at a good time.`

// SendWelcome greets a chat that has no caretaker yet.
func SendWelcome(api Sender, chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "👋 Hi! I deliver coaching updates to caretakers.\n\nPlease send your caretaker id to link this chat.")
	_, err := api.Send(msg)
	return err
}

// SendLinked confirms a chat registration.
func SendLinked(api Sender, chatID int64, caretakerID string) error {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ This chat is now linked to caretaker %s. Alerts will arrive here.", caretakerID))
	_, err := api.Send(msg)
	return err
}

// SendUnlinked confirms a chat was removed from the registry.
func SendUnlinked(api Sender, chatID int64, caretakerID string) error {
	text := "This chat was not linked to any caretaker."
	if caretakerID != "" {
		text = fmt.Sprintf("🔕 This chat will no longer receive alerts for caretaker %s.", caretakerID)
	}
	_, err := api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// SendHelp sends the command overview
func SendHelp(api Sender, chatID int64) error {
	_, err := api.Send(tgbotapi.NewMessage(chatID, helpText))
	return err
}

// SendText sends a plain message
func SendText(api Sender, chatID int64, text string) error {
	_, err := api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
