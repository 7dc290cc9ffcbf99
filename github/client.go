// Package github is a minimal GitHub REST client for pull request
// discussions.
//
// Information Hiding:
// - HTTP transport, auth headers and pagination internalized
// - Raw API payloads never leave the package; callers see model types
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// APIError reports a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("github api error (%d): %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a GitHub 404.
func IsNotFound(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound
}

// Client talks to the GitHub REST API. The token is optional; unauthenticated
// requests work for public repositories at a much lower rate limit.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a GitHub client with the given token ("" for anonymous).
func NewClient(token string) *Client {
	return &Client{
		baseURL: DefaultBaseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

// get performs a GET against the API and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "git-history-agent")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read github response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: apiMessage(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

// apiMessage extracts the "message" field GitHub puts in error bodies.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return string(body)
}

// pullRequest is the subset of the PR payload the agent cares about.
type pullRequest struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	HTMLURL  string `json:"html_url"`
	State    string `json:"state"`
	MergedAt string `json:"merged_at"`
}

// comment is shared between review comments and issue comments.
type comment struct {
	Body string `json:"body"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
}

// review is one submitted PR review.
type review struct {
	Body  string `json:"body"`
	State string `json:"state"`
	User  struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (c *Client) getPullRequest(ctx context.Context, owner, repo string, number int) (pullRequest, error) {
	var pr pullRequest
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	err := c.get(ctx, endpoint, nil, &pr)
	return pr, err
}

func (c *Client) getReviews(ctx context.Context, owner, repo string, number int) ([]review, error) {
	var reviews []review
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", owner, repo, number)
	err := c.get(ctx, endpoint, nil, &reviews)
	return reviews, err
}

func (c *Client) getReviewComments(ctx context.Context, owner, repo string, number int) ([]comment, error) {
	var comments []comment
	endpoint := fmt.Sprintf("/repos/%s/%s/pulls/%d/comments", owner, repo, number)
	err := c.get(ctx, endpoint, nil, &comments)
	return comments, err
}

func (c *Client) getIssueComments(ctx context.Context, owner, repo string, number int) ([]comment, error) {
	var comments []comment
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	err := c.get(ctx, endpoint, nil, &comments)
	return comments, err
}

// searchPRNumbers finds PR numbers whose commits include the given SHA.
func (c *Client) searchPRNumbers(ctx context.Context, owner, repo, sha string) ([]int, error) {
	var result struct {
		Items []struct {
			Number int `json:"number"`
		} `json:"items"`
	}
	params := url.Values{}
	params.Set("q", fmt.Sprintf("repo:%s/%s sha:%s type:pr", owner, repo, sha))
	params.Set("per_page", strconv.Itoa(10))

	if err := c.get(ctx, "/search/issues", params, &result); err != nil {
		return nil, err
	}

	numbers := make([]int, 0, len(result.Items))
	for _, item := range result.Items {
		numbers = append(numbers, item.Number)
	}
	return numbers, nil
}
