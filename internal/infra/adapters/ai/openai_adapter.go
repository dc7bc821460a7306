package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/pkoukk/tiktoken-go"

	"barista-ai-ordering/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.LanguageModelAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements the language capability with the Chat Completions
// API and function calling.
type OpenAIAdapter struct {
	client       openai.Client
	defaultModel string
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client:       openai.NewClient(option.WithAPIKey(apiKey)),
		defaultModel: model,
	}, nil
}

func (o *OpenAIAdapter) Complete(ctx context.Context, model, system string, messages []adapter.Message, tools []adapter.ToolSchema) (adapter.Completion, adapter.Usage, error) {
	if model == "" {
		model = o.defaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: buildMessages(system, messages),
		Tools:    buildTools(tools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return adapter.Completion{}, adapter.Usage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return adapter.Completion{}, adapter.Usage{}, errors.New("no choices in completion")
	}
	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		tc := msg.ToolCalls[0]
		var args map[string]any
		if raw := tc.Function.Arguments; raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return adapter.Completion{}, usage, fmt.Errorf("decode tool arguments: %w", err)
			}
		}
		return adapter.Completion{ToolCall: &adapter.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		}}, usage, nil
	}
	return adapter.Completion{Text: msg.Content}, usage, nil
}

func (o *OpenAIAdapter) Provider() string { return "openai" }

// CountTokens counts prompt tokens with tiktoken. Per-message framing
// overhead is approximated with a small constant.
func (o *OpenAIAdapter) CountTokens(model string, messages []adapter.Message) (int, error) {
	if model == "" {
		model = o.defaultModel
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return 0, fmt.Errorf("tiktoken: %w", err)
		}
	}
	total := 0
	for _, m := range messages {
		total += 4 // message framing
		total += len(enc.Encode(m.Content, nil, nil))
		if m.ToolName != "" {
			total += len(enc.Encode(m.ToolName, nil, nil))
		}
		if len(m.ToolArgs) > 0 {
			raw, _ := json.Marshal(m.ToolArgs)
			total += len(enc.Encode(string(raw), nil, nil))
		}
	}
	return total, nil
}

func buildMessages(system string, messages []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, openai.UserMessage(m.Content))
		case "tool":
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		case "agent":
			if m.ToolName == "" {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			args, _ := json.Marshal(m.ToolArgs)
			asst := openai.ChatCompletionAssistantMessageParam{
				ToolCalls: []openai.ChatCompletionMessageToolCallUnionParam{{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: m.ToolCallID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      m.ToolName,
							Arguments: string(args),
						},
					},
				}},
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		}
	}
	return out
}

func buildTools(tools []adapter.ToolSchema) []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		props := map[string]any{}
		var required []string
		for name, p := range t.Params {
			spec := map[string]any{"type": p.Type}
			if p.Description != "" {
				spec["description"] = p.Description
			}
			if len(p.Enum) > 0 {
				spec["enum"] = p.Enum
			}
			props[name] = spec
			if p.Required {
				required = append(required, name)
			}
		}
		params := shared.FunctionParameters{
			"type":       "object",
			"properties": props,
		}
		if len(required) > 0 {
			params["required"] = required
		}
		out = append(out, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Name,
			Description: openai.String(t.Description),
			Parameters:  params,
		}))
	}
	return out
}
