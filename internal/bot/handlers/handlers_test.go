package handlers

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/coaching-engine/internal/bot/keyboards"
	"github.com/vladimiradmaev/coaching-engine/internal/bot/state"
	"github.com/vladimiradmaev/coaching-engine/internal/domain"
	"github.com/vladimiradmaev/coaching-engine/internal/policy"
)

type fakeSender struct {
	sent      []tgbotapi.Chattable
	requested []tgbotapi.Chattable
	sendErr   error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, f.sendErr
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requested = append(f.requested, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

type stubPolicies struct {
	policy domain.TimingPolicy
	err    error
}

func (s stubPolicies) Lookup(domain.TimingPolicyType) (domain.TimingPolicy, error) {
	return s.policy, s.err
}

func newDeps(t *testing.T) (Dependencies, *fakeSender, *policy.Registry) {
	t.Helper()
	registry, err := policy.NewRegistry(policy.DefaultHours)
	require.NoError(t, err)
	sender := &fakeSender{}
	return Dependencies{API: sender, State: state.NewManager(), Policies: registry}, sender, registry
}

func command(chatID int64, text string) tgbotapi.Update {
	end := len(text)
	for i, r := range text {
		if r == ' ' {
			end = i
			break
		}
	}
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		From:     &tgbotapi.User{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}},
	}}
}

func text(chatID int64, body string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text: body,
		Chat: &tgbotapi.Chat{ID: chatID},
		From: &tgbotapi.User{ID: chatID},
	}}
}

func feedback(data string, chatID int64, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		From:    &tgbotapi.User{ID: chatID},
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func TestStartWithCaretakerIDLinksChat(t *testing.T) {
	ctx := context.Background()
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start care-1")))

	chatID, ok, err := deps.State.ChatForCaretaker(ctx, "care-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), chatID)
	assert.Contains(t, sender.lastText(t), "care-1")
}

func TestStartThenTextLinksChat(t *testing.T) {
	ctx := context.Background()
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start")))
	assert.Equal(t, state.WaitingForCaretakerID, deps.State.GetUserState(ctx, 10))
	assert.Contains(t, sender.lastText(t), "caretaker id")

	require.NoError(t, h.Handle(ctx, text(10, "  care-2 ")))
	assert.Equal(t, state.None, deps.State.GetUserState(ctx, 10))

	chatID, ok, _ := deps.State.ChatForCaretaker(ctx, "care-2")
	assert.True(t, ok)
	assert.Equal(t, int64(10), chatID)
}

func TestStartRefusesCaretakerLinkedElsewhere(t *testing.T) {
	ctx := context.Background()
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start care-1")))
	require.NoError(t, h.Handle(ctx, command(20, "/start care-1")))

	chatID, ok, err := deps.State.ChatForCaretaker(ctx, "care-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(10), chatID)
	assert.Equal(t, alreadyLinkedText, sender.lastText(t))

	// The same happens through the two-step dialog.
	require.NoError(t, h.Handle(ctx, command(20, "/start")))
	require.NoError(t, h.Handle(ctx, text(20, "care-1")))
	assert.Equal(t, alreadyLinkedText, sender.lastText(t))
	assert.Equal(t, state.None, deps.State.GetUserState(ctx, 20))

	chatID, _, _ = deps.State.ChatForCaretaker(ctx, "care-1")
	assert.Equal(t, int64(10), chatID)
}

func TestStartAfterStopMovesCaretaker(t *testing.T) {
	ctx := context.Background()
	deps, _, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start care-1")))
	require.NoError(t, h.Handle(ctx, command(10, "/stop")))
	require.NoError(t, h.Handle(ctx, command(20, "/start care-1")))

	chatID, ok, _ := deps.State.ChatForCaretaker(ctx, "care-1")
	assert.True(t, ok)
	assert.Equal(t, int64(20), chatID)
}

func TestStartRelinkSameChatIsAllowed(t *testing.T) {
	ctx := context.Background()
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start care-1")))
	require.NoError(t, h.Handle(ctx, command(10, "/start care-1")))
	assert.Contains(t, sender.lastText(t), "now linked")
}

func TestInvalidCaretakerIDIsRejected(t *testing.T) {
	ctx := context.Background()
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start")))
	require.NoError(t, h.Handle(ctx, text(10, "not an id")))

	_, ok, _ := deps.State.ChatForCaretaker(ctx, "not an id")
	assert.False(t, ok)
	assert.Equal(t, state.WaitingForCaretakerID, deps.State.GetUserState(ctx, 10))
	assert.Contains(t, sender.lastText(t), "does not look like")
}

func TestTextOutsideRegistration(t *testing.T) {
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(context.Background(), text(10, "hello")))
	assert.Contains(t, sender.lastText(t), "/start")
}

func TestStopUnlinksChat(t *testing.T) {
	ctx := context.Background()
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(ctx, command(10, "/start care-1")))
	require.NoError(t, h.Handle(ctx, command(10, "/stop")))

	_, ok, _ := deps.State.ChatForCaretaker(ctx, "care-1")
	assert.False(t, ok)
	assert.Contains(t, sender.lastText(t), "no longer receive")
}

func TestHelpAndUnknownCommands(t *testing.T) {
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(context.Background(), command(10, "/help")))
	assert.Contains(t, sender.lastText(t), "/stop")

	require.NoError(t, h.Handle(context.Background(), command(10, "/dance")))
	assert.Contains(t, sender.lastText(t), "Unknown command")
}

func TestFeedbackUpdatesPolicy(t *testing.T) {
	deps, sender, registry := newDeps(t)
	h := NewUpdateHandler(deps)

	data := keyboards.FeedbackData(domain.TimingPolicyThompsonSampling, 9, 1)
	require.NoError(t, h.Handle(context.Background(), feedback(data, 10, 42)))

	p, err := registry.Lookup(domain.TimingPolicyThompsonSampling)
	require.NoError(t, err)
	sampler, ok := p.(*policy.ThompsonSampler)
	require.True(t, ok)
	alpha, beta := sampler.Posterior(9)
	assert.Equal(t, 2.0, alpha)
	assert.Equal(t, 1.0, beta)

	require.Len(t, sender.requested, 2)
	answer, ok := sender.requested[0].(tgbotapi.CallbackConfig)
	require.True(t, ok)
	assert.Equal(t, "cb-1", answer.CallbackQueryID)
	assert.Equal(t, "Thanks for the feedback!", answer.Text)

	edit, ok := sender.requested[1].(tgbotapi.EditMessageReplyMarkupConfig)
	require.True(t, ok)
	assert.Equal(t, int64(10), edit.ChatID)
	assert.Equal(t, 42, edit.MessageID)
}

func TestFeedbackRejectedByPolicy(t *testing.T) {
	deps, sender, registry := newDeps(t)
	h := NewUpdateHandler(deps)

	// 8 is not a candidate hour
	data := keyboards.FeedbackData(domain.TimingPolicyThompsonSampling, 8, 1)
	require.NoError(t, h.Handle(context.Background(), feedback(data, 10, 42)))

	p, _ := registry.Lookup(domain.TimingPolicyThompsonSampling)
	alpha, beta := p.(*policy.ThompsonSampler).Posterior(9)
	assert.Equal(t, 1.0, alpha)
	assert.Equal(t, 1.0, beta)

	require.Len(t, sender.requested, 1)
	answer := sender.requested[0].(tgbotapi.CallbackConfig)
	assert.Contains(t, answer.Text, "expired")
}

func TestFeedbackUnknownPolicy(t *testing.T) {
	deps, sender, _ := newDeps(t)
	deps.Policies = stubPolicies{err: errors.New("no such policy")}
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(context.Background(), feedback("fb:epsilon_greedy:9:1", 10, 1)))
	require.Len(t, sender.requested, 1)
	assert.Contains(t, sender.requested[0].(tgbotapi.CallbackConfig).Text, "expired")
}

func TestUnrelatedCallbackIsAnswered(t *testing.T) {
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(context.Background(), feedback("main_menu", 10, 1)))
	require.Len(t, sender.requested, 1)
	assert.Empty(t, sender.sent)
}

func TestEmptyUpdateIsIgnored(t *testing.T) {
	deps, sender, _ := newDeps(t)
	h := NewUpdateHandler(deps)

	require.NoError(t, h.Handle(context.Background(), tgbotapi.Update{}))
	assert.Empty(t, sender.sent)
	assert.Empty(t, sender.requested)
}
