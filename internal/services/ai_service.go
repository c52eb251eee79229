package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"google.golang.org/api/option"

	"github.com/vladimiradmaev/coaching-engine/internal/errors"
	"github.com/vladimiradmaev/coaching-engine/internal/logger"
)

// Tool choices understood by every generator.
const (
	ToolChoiceNone = "none"
	ToolChoiceAuto = "auto"
)

// Tool is a function the model may call.
type Tool struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// Prompt is one generation request.
type Prompt struct {
	System      string
	User        string
	Tools       []Tool
	ToolChoice  string
	UserID      string
	Temperature float32
	Seed        *int
}

// ToolCall is a structured function call emitted by the model.
type ToolCall struct {
	Name      string
	Arguments string // raw JSON object
}

// Completion is the model reply: free text, a tool call, or both.
type Completion struct {
	Text     string
	ToolCall *ToolCall
}

// Generator is a language-model backend.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt Prompt) (*Completion, error)
}

// AIService is the generation collaborator. It tries the primary backend and, on
// failure, the fallback if one is configured.
type AIService struct {
	primary  Generator
	fallback Generator
}

// NewAIService creates the service. fallback may be nil.
func NewAIService(primary, fallback Generator) *AIService {
	return &AIService{primary: primary, fallback: fallback}
}

func (s *AIService) Generate(ctx context.Context, prompt Prompt) (*Completion, error) {
	if s.primary == nil {
		return nil, errors.NewConfigurationError("no language model provider is configured")
	}

	completion, err := s.primary.Generate(ctx, prompt)
	if err == nil || s.fallback == nil {
		return completion, err
	}

	logger.Warn("Primary generator failed, trying fallback",
		"primary", s.primary.Name(),
		"fallback", s.fallback.Name(),
		"error", err)
	return s.fallback.Generate(ctx, prompt)
}

// OpenAIGenerator calls the chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) Name() string { return "openai" }

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt Prompt) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: prompt.Temperature,
		User:        prompt.UserID,
		Seed:        prompt.Seed,
	}
	if len(prompt.Tools) > 0 {
		for _, t := range prompt.Tools {
			req.Tools = append(req.Tools, openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		req.ToolChoice = prompt.ToolChoice
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, errors.NewExternalAPIError(err, "OpenAI")
	}
	if len(resp.Choices) == 0 {
		return nil, errors.NewMalformedOutputError("chat completion has no choices")
	}

	msg := resp.Choices[0].Message
	completion := &Completion{Text: msg.Content}
	switch {
	case len(msg.ToolCalls) > 0:
		completion.ToolCall = &ToolCall{
			Name:      msg.ToolCalls[0].Function.Name,
			Arguments: msg.ToolCalls[0].Function.Arguments,
		}
	case msg.FunctionCall != nil:
		completion.ToolCall = &ToolCall{Name: msg.FunctionCall.Name, Arguments: msg.FunctionCall.Arguments}
	}
	return completion, nil
}

// GeminiGenerator calls Gemini with function declarations.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator opens a Gemini client with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.NewExternalAPIError(err, "Gemini")
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Name() string { return "gemini" }

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt Prompt) (*Completion, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(prompt.Temperature)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.System)}}
	// Gemini has no per-request "none" choice, so tools are only offered when the
	// model is allowed to call them.
	if len(prompt.Tools) > 0 && prompt.ToolChoice != ToolChoiceNone {
		model.Tools = []*genai.Tool{geminiTool(prompt.Tools)}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.User))
	if err != nil {
		return nil, errors.NewExternalAPIError(err, "Gemini")
	}
	return completionFromGemini(resp)
}

func completionFromGemini(resp *genai.GenerateContentResponse) (*Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.NewMalformedOutputError("gemini response has no candidates")
	}

	completion := &Completion{}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			completion.Text += string(p)
		case genai.FunctionCall:
			if completion.ToolCall != nil {
				continue
			}
			args, err := json.Marshal(p.Args)
			if err != nil {
				return nil, errors.NewMalformedOutputError(fmt.Sprintf("gemini function args: %v", err))
			}
			completion.ToolCall = &ToolCall{Name: p.Name, Arguments: string(args)}
		}
	}
	return completion, nil
}

func geminiTool(tools []Tool) *genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  geminiSchema(&params),
		})
	}
	return &genai.Tool{FunctionDeclarations: decls}
}

func geminiSchema(d *jsonschema.Definition) *genai.Schema {
	s := &genai.Schema{
		Description: d.Description,
		Enum:        d.Enum,
		Required:    d.Required,
	}
	switch d.Type {
	case jsonschema.Object:
		s.Type = genai.TypeObject
	case jsonschema.Array:
		s.Type = genai.TypeArray
	case jsonschema.Number:
		s.Type = genai.TypeNumber
	case jsonschema.Integer:
		s.Type = genai.TypeInteger
	case jsonschema.Boolean:
		s.Type = genai.TypeBoolean
	default:
		s.Type = genai.TypeString
	}
	if len(d.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(d.Properties))
		for name, prop := range d.Properties {
			prop := prop
			s.Properties[name] = geminiSchema(&prop)
		}
	}
	if d.Items != nil {
		s.Items = geminiSchema(d.Items)
	}
	return s
}
