package adapter

import "context"

// Message is the provider-neutral view of conversation history handed to a
// language model. Tool calls and results travel as first-class messages so
// history always reflects executed ground truth.
type Message struct {
	Role       string         `json:"role"` // "user", "agent", "tool"
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolArgs   map[string]any `json:"tool_args,omitempty"`
}

// ParamSpec describes one tool parameter for the model's function schema.
type ParamSpec struct {
	Type        string   // "string", "integer", "object"
	Description string
	Required    bool
	Enum        []string
}

// ToolSchema is the schema-typed declaration of one callable tool.
type ToolSchema struct {
	Name        string
	Description string
	Params      map[string]ParamSpec
}

// ToolCall is a structured tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Completion is the tagged result of one model invocation: either a final
// text reply or exactly one tool-call request, never both.
type Completion struct {
	Text     string
	ToolCall *ToolCall
}

func (c Completion) IsToolCall() bool { return c.ToolCall != nil }

// Usage for a single model call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LanguageModelAdapter is the port for the conversational capability: given
// history plus the tool schemas valid for the current agent mode, produce
// either a text reply or a tool invocation request.
type LanguageModelAdapter interface {
	// Complete runs one model invocation.
	Complete(ctx context.Context, model string, system string, messages []Message, tools []ToolSchema) (Completion, Usage, error)

	// CountTokens returns prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(model string, messages []Message) (int, error)

	// Provider names the backing provider for metrics labels.
	Provider() string
}
