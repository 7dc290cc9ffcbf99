// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
	"time"
)

// Capabilities declares the optional behaviors a provider supports.
// Callers branch on these flags, never on a concrete provider identity,
// so adding a provider requires no caller changes.
type Capabilities struct {
	ToolCalling    bool
	ContextCaching bool
}

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for tool-calling chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Capabilities returns the provider's capability set.
	Capabilities() Capabilities

	// ChatWithTools sends a chat completion request with tool definitions.
	// The LLM may respond with tool calls in LLMResponse.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}

// CachePrefix is the fixed portion of a prompt stored provider-side:
// system instructions plus the code/history context, with the tool set
// bound in so cached requests only carry the variable suffix.
type CachePrefix struct {
	DisplayName       string
	SystemInstruction string
	Content           string
	Tools             []ToolDefinition
	TTL               time.Duration
}

// CacheCapable is implemented by providers that support provider-side
// context caching. Only providers whose Capabilities report
// ContextCaching implement it.
type CacheCapable interface {
	Provider

	// CreateCache stores the fixed prefix provider-side and returns an
	// opaque cache handle.
	CreateCache(ctx context.Context, prefix CachePrefix) (string, error)

	// ChatWithCache sends only the variable suffix; the provider splices
	// in the cached prefix (system instruction, context, tools) itself.
	ChatWithCache(ctx context.Context, handle string, messages []ChatMessage) (LLMResponse, error)

	// DeleteCache removes a provider-side cache. Deleting an unknown
	// handle is not an error.
	DeleteCache(ctx context.Context, handle string) error
}
