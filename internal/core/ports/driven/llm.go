package driven

import "context"

// Message roles understood by LLM backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// LLMService provides language model operations for the agent loop.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini and compatible APIs)
type LLMService interface {
	// Chat runs one model consultation. When tools is non-empty the
	// model may respond with tool calls instead of (or alongside)
	// textual content; the caller executes them and feeds the results
	// back as RoleTool messages referencing the originating call ID.
	Chat(ctx context.Context, messages []ChatMessage, tools []ToolSpec, opts ChatOptions) (*ChatResponse, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of the Role* constants.
	Role string

	// Content is the message text. May be empty on assistant messages
	// that carry only tool calls.
	Content string

	// ToolCalls are the calls requested by an assistant message.
	ToolCalls []ToolCall

	// ToolCallID links a RoleTool message to the call it answers.
	ToolCallID string
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	// ID is the backend-assigned call identifier.
	ID string

	// Name is the tool being invoked.
	Name string

	// Arguments is the raw JSON argument object.
	Arguments string
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	// Name is the tool identifier the model uses to invoke it.
	Name string

	// Description tells the model when to use the tool.
	Description string

	// Parameters is the JSON Schema of the argument object.
	Parameters map[string]any
}

// ChatOptions configures chat behaviour.
type ChatOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64
}

// ChatResponse is the model's reply to one consultation.
type ChatResponse struct {
	// Content is the textual content, empty when the model only
	// requested tools.
	Content string

	// ToolCalls are the requested invocations, in the order the model
	// issued them. Empty means the model is done and Content is the
	// final answer.
	ToolCalls []ToolCall
}
