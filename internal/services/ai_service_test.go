package services

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladimiradmaev/coaching-engine/internal/errors"
)

type fakeGenerator struct {
	name       string
	calls      int
	completion *Completion
	err        error
	prompts    []Prompt
}

func (f *fakeGenerator) Name() string { return f.name }

func (f *fakeGenerator) Generate(_ context.Context, prompt Prompt) (*Completion, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.completion, f.err
}

func TestAIService_UsesPrimary(t *testing.T) {
	primary := &fakeGenerator{name: "openai", completion: &Completion{Text: "hi"}}
	fallback := &fakeGenerator{name: "gemini"}

	got, err := NewAIService(primary, fallback).Generate(context.Background(), Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Text)
	assert.Equal(t, 1, primary.calls)
	assert.Zero(t, fallback.calls)
}

func TestAIService_FallsBack(t *testing.T) {
	primary := &fakeGenerator{name: "gemini", err: errors.NewExternalAPIError(assert.AnError, "Gemini")}
	fallback := &fakeGenerator{name: "openai", completion: &Completion{Text: "from fallback"}}

	got, err := NewAIService(primary, fallback).Generate(context.Background(), Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", got.Text)
	assert.Equal(t, 1, fallback.calls)
}

func TestAIService_NoFallbackReturnsError(t *testing.T) {
	primary := &fakeGenerator{name: "openai", err: errors.NewExternalAPIError(assert.AnError, "OpenAI")}

	_, err := NewAIService(primary, nil).Generate(context.Background(), Prompt{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeExternal))
}

func TestAIService_NoProvider(t *testing.T) {
	_, err := NewAIService(nil, nil).Generate(context.Background(), Prompt{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration))
}

func TestOpenAIGenerator_SendsToolsAndParsesToolCall(t *testing.T) {
	var body map[string]any
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {
							"name": "issue_alert",
							"arguments": "{\"alert_title\":\"t\",\"summary\":\"s\",\"suggested_step\":\"x\"}"
						}
					}]
				}
			}]
		}`))
	})

	seed := 42
	g := NewOpenAIGenerator(client, "gpt-4o-mini")
	got, err := g.Generate(context.Background(), Prompt{
		System:      "sys",
		User:        "usr",
		Tools:       caretakerTools,
		ToolChoice:  ToolChoiceAuto,
		UserID:      "caretaker-1",
		Temperature: 0.8,
		Seed:        &seed,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ToolCall)
	assert.Equal(t, ToolIssueAlert, got.ToolCall.Name)
	assert.JSONEq(t, `{"alert_title":"t","summary":"s","suggested_step":"x"}`, got.ToolCall.Arguments)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	assert.Equal(t, "auto", body["tool_choice"])
	assert.Equal(t, "caretaker-1", body["user"])
	assert.Equal(t, float64(42), body["seed"])

	messages, _ := body["messages"].([]any)
	require.Len(t, messages, 2)
	first, _ := messages[0].(map[string]any)
	assert.Equal(t, "system", first["role"])
	assert.Equal(t, "sys", first["content"])

	tools, _ := body["tools"].([]any)
	require.Len(t, tools, 1)
}

func TestOpenAIGenerator_TextReply(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Great job, Lily!"}}]}`))
	})

	got, err := NewOpenAIGenerator(client, "gpt-4o-mini").Generate(context.Background(), Prompt{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "Great job, Lily!", got.Text)
	assert.Nil(t, got.ToolCall)
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	client := newOpenAITestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := NewOpenAIGenerator(client, "gpt-4o-mini").Generate(context.Background(), Prompt{User: "u"})
	assert.ErrorIs(t, err, errors.ErrMalformedOutput)
}

func TestCompletionFromGemini(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("Here is the alert."),
				genai.FunctionCall{Name: ToolIssueAlert, Args: map[string]any{
					"alert_title":    "Low intake",
					"summary":        "Three low days.",
					"suggested_step": "Plan a snack.",
				}},
			}},
		}},
	}

	got, err := completionFromGemini(resp)
	require.NoError(t, err)
	assert.Equal(t, "Here is the alert.", got.Text)
	require.NotNil(t, got.ToolCall)
	assert.Equal(t, ToolIssueAlert, got.ToolCall.Name)
	assert.JSONEq(t, `{"alert_title":"Low intake","summary":"Three low days.","suggested_step":"Plan a snack."}`,
		got.ToolCall.Arguments)
}

func TestCompletionFromGemini_Empty(t *testing.T) {
	_, err := completionFromGemini(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, errors.ErrMalformedOutput)
}

func TestGeminiSchema(t *testing.T) {
	def := coachTools[0].Parameters
	s := geminiSchema(&def)

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, []string{"metric", "target_value", "rationale"}, s.Required)
	require.Contains(t, s.Properties, "metric")
	assert.Equal(t, genai.TypeString, s.Properties["metric"].Type)
	assert.Equal(t, []string{"steps", "active_minutes", "sleep_hours"}, s.Properties["metric"].Enum)
	assert.Equal(t, genai.TypeNumber, s.Properties["target_value"].Type)

	arr := geminiSchema(&jsonschema.Definition{Type: jsonschema.Array, Items: &jsonschema.Definition{Type: jsonschema.Integer}})
	assert.Equal(t, genai.TypeArray, arr.Type)
	assert.Equal(t, genai.TypeInteger, arr.Items.Type)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "", extractJSON("no json here"))
}
