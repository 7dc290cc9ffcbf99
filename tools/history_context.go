// History context tool - blame, commits and PR discussions for the block.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soham-vohra/git-history-agent/model"
)

// DefaultMaxCommits bounds how many commits the history walk summarizes
// when the model does not ask for a specific amount.
const DefaultMaxCommits = 10

// HistoryContextSource produces git-derived history for a block reference.
type HistoryContextSource interface {
	HistoryContext(ctx context.Context, ref model.BlockRef, maxCommits int) (model.HistoryContext, error)
}

// HistoryContextTool exposes history retrieval to the model.
type HistoryContextTool struct {
	source HistoryContextSource
}

// NewHistoryContextTool creates a history tool backed by the given source.
func NewHistoryContextTool(source HistoryContextSource) *HistoryContextTool {
	return &HistoryContextTool{source: source}
}

// Metadata returns the tool metadata.
func (t *HistoryContextTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "get_history_context",
		Description: "Fetch the git history for the current block of code: per-line " +
			"blame, the commits that touched the block (most recent first), and any " +
			"pull request discussions associated with those commits.",
		Parameters: []ToolParameter{
			{
				Name:        "max_commits",
				ParamType:   "integer",
				Description: "Maximum number of commits to summarize.",
				Required:    false,
			},
		},
	}
}

type historyContextArgs struct {
	BlockRef   model.BlockRef `json:"block_ref"`
	MaxCommits *int           `json:"max_commits"`
}

// Execute fetches the history context and returns it as JSON.
func (t *HistoryContextTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var input historyContextArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return FailureResult(fmt.Errorf("bad arguments: %w", err)), nil
	}
	if err := input.BlockRef.Validate(); err != nil {
		return FailureResult(err), nil
	}

	maxCommits := DefaultMaxCommits
	if input.MaxCommits != nil && *input.MaxCommits > 0 {
		maxCommits = *input.MaxCommits
	}

	history, err := t.source.HistoryContext(ctx, input.BlockRef, maxCommits)
	if err != nil {
		return FailureResult(err), nil
	}

	out, err := json.Marshal(history)
	if err != nil {
		return FailureResult(fmt.Errorf("encode history context: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

var _ Tool = (*HistoryContextTool)(nil)
