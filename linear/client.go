// Package linear is a minimal Linear GraphQL client for issue search and
// creation.
//
// Information Hiding:
// - GraphQL transport and query construction internalized
// - API payload shapes never leave the package
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the Linear GraphQL endpoint.
const DefaultAPIURL = "https://api.linear.app/graphql"

// Issue is the subset of Linear issue fields the agent surfaces.
type Issue struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	URL         string `json:"url,omitempty"`
	Priority    int    `json:"priority"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateIssueInput carries the fields for a new issue.
type CreateIssueInput struct {
	TeamID      string
	Title       string
	Description string
	Priority    *int
}

// Client talks to the Linear GraphQL API.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a Linear client with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiURL: DefaultAPIURL,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithAPIURL overrides the GraphQL endpoint. Used by tests.
func (c *Client) WithAPIURL(apiURL string) *Client {
	c.apiURL = apiURL
	return c
}

// issueFields is the selection set shared by queries and mutations.
const issueFields = `
	id
	identifier
	title
	description
	state { name }
	assignee { name }
	url
	priority
	createdAt
`

// rawIssue mirrors the GraphQL payload before flattening into Issue.
type rawIssue struct {
	ID          string `json:"id"`
	Identifier  string `json:"identifier"`
	Title       string `json:"title"`
	Description string `json:"description"`
	State       *struct {
		Name string `json:"name"`
	} `json:"state"`
	Assignee *struct {
		Name string `json:"name"`
	} `json:"assignee"`
	URL       string  `json:"url"`
	Priority  float64 `json:"priority"`
	CreatedAt string  `json:"createdAt"`
}

func (r rawIssue) toIssue() Issue {
	issue := Issue{
		ID:          r.ID,
		Identifier:  r.Identifier,
		Title:       r.Title,
		Description: r.Description,
		URL:         r.URL,
		Priority:    int(r.Priority),
		CreatedAt:   r.CreatedAt,
	}
	if r.State != nil {
		issue.State = r.State.Name
	}
	if r.Assignee != nil {
		issue.Assignee = r.Assignee.Name
	}
	return issue
}

// execute posts a GraphQL query and decodes data into out.
func (c *Client) execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{"query": query}
	if len(variables) > 0 {
		payload["variables"] = variables
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode linear query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build linear request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	auth := c.apiKey
	if auth != "" && !strings.HasPrefix(auth, "Bearer ") {
		auth = "Bearer " + auth
	}
	req.Header.Set("Authorization", auth)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("linear request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read linear response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("linear api error (%d): %s", resp.StatusCode, clipBody(raw))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode linear response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			messages[i] = e.Message
		}
		return fmt.Errorf("linear api errors: %s", strings.Join(messages, ", "))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decode linear data: %w", err)
	}
	return nil
}

func clipBody(b []byte) string {
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}

// SearchIssues finds issues whose title matches query, optionally scoped
// to one team.
func (c *Client) SearchIssues(ctx context.Context, query, teamID string, limit int) ([]Issue, error) {
	if limit < 1 {
		limit = 20
	}

	filter := map[string]interface{}{
		"title": map[string]interface{}{"containsIgnoreCase": query},
	}
	if teamID != "" {
		filter["team"] = map[string]interface{}{
			"id": map[string]interface{}{"eq": teamID},
		}
	}

	gql := fmt.Sprintf(`
	query SearchIssues($filter: IssueFilter, $first: Int) {
		issues(filter: $filter, first: $first) {
			nodes {%s}
		}
	}`, issueFields)

	var result struct {
		Issues struct {
			Nodes []rawIssue `json:"nodes"`
		} `json:"issues"`
	}
	err := c.execute(ctx, gql, map[string]interface{}{
		"filter": filter,
		"first":  limit,
	}, &result)
	if err != nil {
		return nil, err
	}

	issues := make([]Issue, 0, len(result.Issues.Nodes))
	for _, node := range result.Issues.Nodes {
		issues = append(issues, node.toIssue())
	}
	return issues, nil
}

// CreateIssue creates a new issue and returns it.
func (c *Client) CreateIssue(ctx context.Context, input CreateIssueInput) (Issue, error) {
	if input.TeamID == "" || input.Title == "" {
		return Issue{}, fmt.Errorf("team id and title are required")
	}

	gql := fmt.Sprintf(`
	mutation CreateIssue($input: IssueCreateInput!) {
		issueCreate(input: $input) {
			success
			issue {%s}
		}
	}`, issueFields)

	createInput := map[string]interface{}{
		"teamId": input.TeamID,
		"title":  input.Title,
	}
	if input.Description != "" {
		createInput["description"] = input.Description
	}
	if input.Priority != nil {
		createInput["priority"] = *input.Priority
	}

	var result struct {
		IssueCreate struct {
			Success bool     `json:"success"`
			Issue   rawIssue `json:"issue"`
		} `json:"issueCreate"`
	}
	err := c.execute(ctx, gql, map[string]interface{}{"input": createInput}, &result)
	if err != nil {
		return Issue{}, err
	}
	if !result.IssueCreate.Success {
		return Issue{}, fmt.Errorf("linear refused to create issue")
	}
	return result.IssueCreate.Issue.toIssue(), nil
}
