// PR discussion tool - full discussion thread for a specific pull request.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soham-vohra/git-history-agent/model"
)

// PRDiscussionSource fetches the discussion for one pull request.
type PRDiscussionSource interface {
	PRDiscussion(ctx context.Context, owner, repo string, number int) (model.PRDiscussion, error)
}

// PRDiscussionTool exposes pull request discussion retrieval to the model.
type PRDiscussionTool struct {
	source PRDiscussionSource
}

// NewPRDiscussionTool creates a PR discussion tool backed by the given source.
func NewPRDiscussionTool(source PRDiscussionSource) *PRDiscussionTool {
	return &PRDiscussionTool{source: source}
}

// Metadata returns the tool metadata.
func (t *PRDiscussionTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "get_pr_discussion",
		Description: "Fetch the full discussion for a pull request in the repository " +
			"the current block belongs to: title, state, review comments and " +
			"conversation. Use the PR numbers surfaced by get_history_context.",
		Parameters: []ToolParameter{
			{
				Name:        "pr_number",
				ParamType:   "integer",
				Description: "Pull request number to fetch.",
				Required:    true,
			},
		},
	}
}

type prDiscussionArgs struct {
	BlockRef model.BlockRef `json:"block_ref"`
	PRNumber int            `json:"pr_number"`
}

// Execute fetches the PR discussion and returns it as JSON.
func (t *PRDiscussionTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var input prDiscussionArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return FailureResult(fmt.Errorf("bad arguments: %w", err)), nil
	}
	if err := input.BlockRef.Validate(); err != nil {
		return FailureResult(err), nil
	}
	if input.PRNumber < 1 {
		return FailureResultf("pr_number %d is not a valid pull request number", input.PRNumber), nil
	}

	discussion, err := t.source.PRDiscussion(ctx, input.BlockRef.RepoOwner, input.BlockRef.RepoName, input.PRNumber)
	if err != nil {
		return FailureResult(err), nil
	}

	out, err := json.Marshal(discussion)
	if err != nil {
		return FailureResult(fmt.Errorf("encode pr discussion: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

var _ Tool = (*PRDiscussionTool)(nil)
