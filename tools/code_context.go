// Code context tool - fetches the current code for the block in focus.
//
// The backend already knows which block is in focus; the model only
// chooses how many surrounding lines to include. The orchestrator injects
// the block reference into the arguments before execution.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soham-vohra/git-history-agent/model"
)

// DefaultContextLines is how many lines above and below the block are
// included when the model does not ask for a specific amount.
const DefaultContextLines = 10

// CodeContextSource produces code context for a block reference.
type CodeContextSource interface {
	CodeContext(ctx context.Context, ref model.BlockRef, contextLines int) (model.CodeContext, error)
}

// CodeContextTool exposes code context retrieval to the model.
type CodeContextTool struct {
	source CodeContextSource
}

// NewCodeContextTool creates a code context tool backed by the given source.
func NewCodeContextTool(source CodeContextSource) *CodeContextTool {
	return &CodeContextTool{source: source}
}

// Metadata returns the tool metadata.
func (t *CodeContextTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "get_code_context",
		Description: "Fetch code and surrounding context for the current block of code. " +
			"The backend already knows which block is in focus; you only need to " +
			"choose how many lines of surrounding context to include.",
		Parameters: []ToolParameter{
			{
				Name:        "context_lines",
				ParamType:   "integer",
				Description: "Number of lines to include above and below the block.",
				Required:    false,
			},
		},
	}
}

type codeContextArgs struct {
	BlockRef     model.BlockRef `json:"block_ref"`
	ContextLines *int           `json:"context_lines"`
}

// Execute fetches the code context and returns it as JSON.
func (t *CodeContextTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var input codeContextArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return FailureResult(fmt.Errorf("bad arguments: %w", err)), nil
	}
	if err := input.BlockRef.Validate(); err != nil {
		return FailureResult(err), nil
	}

	contextLines := DefaultContextLines
	if input.ContextLines != nil && *input.ContextLines >= 0 {
		contextLines = *input.ContextLines
	}

	codeCtx, err := t.source.CodeContext(ctx, input.BlockRef, contextLines)
	if err != nil {
		return FailureResult(err), nil
	}

	out, err := json.Marshal(codeCtx)
	if err != nil {
		return FailureResult(fmt.Errorf("encode code context: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

var _ Tool = (*CodeContextTool)(nil)
