// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"barista-ai-ordering/internal/domain/ports/adapter"
)

var _ adapter.LanguageModelAdapter = (*GeminiAdapter)(nil)

// GeminiAdapter implements the language capability with the official SDK's
// function-declaration tools.
type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
}

func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, defaultModel: defaultModel}, nil
}

func (g *GeminiAdapter) Complete(ctx context.Context, model, system string, messages []adapter.Message, tools []adapter.ToolSchema) (adapter.Completion, adapter.Usage, error) {
	if model == "" {
		model = g.defaultModel
	}
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if len(tools) > 0 {
		cfg.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(tools)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, geminiContents(messages), cfg)
	if err != nil {
		return adapter.Completion{}, adapter.Usage{}, fmt.Errorf("generate content: %w", err)
	}
	var usage adapter.Usage
	if resp.UsageMetadata != nil {
		usage = adapter.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return adapter.Completion{}, usage, errors.New("no candidates in response")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			return adapter.Completion{ToolCall: &adapter.ToolCall{
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			}}, usage, nil
		}
	}
	return adapter.Completion{Text: resp.Text()}, usage, nil
}

func (g *GeminiAdapter) Provider() string { return "gemini" }

// CountTokens is best-effort for Gemini: the exact counter is a remote call,
// so a bytes/4 heuristic keeps trimming cheap and context-free.
func (g *GeminiAdapter) CountTokens(model string, messages []adapter.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += 4 + len(m.Content)/4
		if len(m.ToolArgs) > 0 {
			raw, _ := json.Marshal(m.ToolArgs)
			total += len(raw) / 4
		}
	}
	return total, nil
}

func geminiContents(messages []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "user":
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		case "agent":
			if m.ToolName == "" {
				out = append(out, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
				continue
			}
			out = append(out, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{Name: m.ToolName, Args: m.ToolArgs},
			}}})
		case "tool":
			out = append(out, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					Name:     m.ToolName,
					Response: map[string]any{"result": m.Content},
				},
			}}})
		}
	}
	return out
}

func geminiDeclarations(tools []adapter.ToolSchema) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := map[string]*genai.Schema{}
		var required []string
		for name, p := range t.Params {
			props[name] = &genai.Schema{
				Type:        geminiType(p.Type),
				Description: p.Description,
				Enum:        p.Enum,
			}
			if p.Required {
				required = append(required, name)
			}
		}
		out = append(out, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return out
}

func geminiType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
