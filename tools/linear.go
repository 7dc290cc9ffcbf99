// Linear tools - issue search and creation through the Linear GraphQL API.
//
// These tools do not depend on the block in focus; the model drives them
// with its own arguments when the conversation calls for issue tracking.

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soham-vohra/git-history-agent/linear"
)

// DefaultIssueSearchLimit bounds search results when the model does not
// ask for a specific amount.
const DefaultIssueSearchLimit = 10

// IssueSearcher searches Linear issues.
type IssueSearcher interface {
	SearchIssues(ctx context.Context, query, teamID string, limit int) ([]linear.Issue, error)
}

// IssueCreator creates Linear issues.
type IssueCreator interface {
	CreateIssue(ctx context.Context, input linear.CreateIssueInput) (linear.Issue, error)
}

// SearchLinearIssuesTool exposes Linear issue search to the model.
type SearchLinearIssuesTool struct {
	searcher IssueSearcher
}

// NewSearchLinearIssuesTool creates a search tool backed by the given client.
func NewSearchLinearIssuesTool(searcher IssueSearcher) *SearchLinearIssuesTool {
	return &SearchLinearIssuesTool{searcher: searcher}
}

// Metadata returns the tool metadata.
func (t *SearchLinearIssuesTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "search_linear_issues",
		Description: "Search Linear issues by text. Useful for finding existing " +
			"tickets related to the code under discussion before creating new ones.",
		Parameters: []ToolParameter{
			{
				Name:        "query",
				ParamType:   "string",
				Description: "Free-text search query.",
				Required:    true,
			},
			{
				Name:        "team_id",
				ParamType:   "string",
				Description: "Restrict the search to one team.",
				Required:    false,
			},
			{
				Name:        "limit",
				ParamType:   "integer",
				Description: "Maximum number of issues to return.",
				Required:    false,
			},
		},
	}
}

type searchIssuesArgs struct {
	Query  string `json:"query"`
	TeamID string `json:"team_id"`
	Limit  *int   `json:"limit"`
}

// Execute runs the search and returns matching issues as JSON.
func (t *SearchLinearIssuesTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var input searchIssuesArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return FailureResult(fmt.Errorf("bad arguments: %w", err)), nil
	}
	if input.Query == "" {
		return FailureResultf("query must not be empty"), nil
	}

	limit := DefaultIssueSearchLimit
	if input.Limit != nil && *input.Limit > 0 {
		limit = *input.Limit
	}

	issues, err := t.searcher.SearchIssues(ctx, input.Query, input.TeamID, limit)
	if err != nil {
		return FailureResult(err), nil
	}

	out, err := json.Marshal(issues)
	if err != nil {
		return FailureResult(fmt.Errorf("encode issues: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

var _ Tool = (*SearchLinearIssuesTool)(nil)

// CreateLinearIssueTool exposes Linear issue creation to the model.
type CreateLinearIssueTool struct {
	creator IssueCreator
}

// NewCreateLinearIssueTool creates an issue-creation tool backed by the
// given client.
func NewCreateLinearIssueTool(creator IssueCreator) *CreateLinearIssueTool {
	return &CreateLinearIssueTool{creator: creator}
}

// Metadata returns the tool metadata.
func (t *CreateLinearIssueTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: "create_linear_issue",
		Description: "Create a new Linear issue. Only do this when the user " +
			"explicitly asks for a ticket to be filed.",
		Parameters: []ToolParameter{
			{
				Name:        "team_id",
				ParamType:   "string",
				Description: "Linear team the issue belongs to.",
				Required:    true,
			},
			{
				Name:        "title",
				ParamType:   "string",
				Description: "Issue title.",
				Required:    true,
			},
			{
				Name:        "description",
				ParamType:   "string",
				Description: "Issue description in markdown.",
				Required:    true,
			},
			{
				Name:        "priority",
				ParamType:   "integer",
				Description: "Priority from 0 (none) to 4 (low).",
				Required:    false,
			},
		},
	}
}

type createIssueArgs struct {
	TeamID      string `json:"team_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    *int   `json:"priority"`
}

// Execute creates the issue and returns it as JSON.
func (t *CreateLinearIssueTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var input createIssueArgs
	if err := json.Unmarshal(args, &input); err != nil {
		return FailureResult(fmt.Errorf("bad arguments: %w", err)), nil
	}
	if input.TeamID == "" || input.Title == "" {
		return FailureResultf("team_id and title must not be empty"), nil
	}

	issue, err := t.creator.CreateIssue(ctx, linear.CreateIssueInput{
		TeamID:      input.TeamID,
		Title:       input.Title,
		Description: input.Description,
		Priority:    input.Priority,
	})
	if err != nil {
		return FailureResult(err), nil
	}

	out, err := json.Marshal(issue)
	if err != nil {
		return FailureResult(fmt.Errorf("encode issue: %w", err)), nil
	}
	return SuccessResult(string(out)), nil
}

var _ Tool = (*CreateLinearIssueTool)(nil)
