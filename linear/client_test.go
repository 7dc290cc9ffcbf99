package linear

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSearchIssues(t *testing.T) {
	var gotAuth string
	var gotVariables map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var payload struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		gotVariables = payload.Variables

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"issues": map[string]interface{}{
					"nodes": []map[string]interface{}{
						{
							"id":         "issue-1",
							"identifier": "ENG-42",
							"title":      "Greeting prints twice",
							"state":      map[string]string{"name": "In Progress"},
							"assignee":   map[string]string{"name": "Ada"},
							"url":        "https://linear.app/demo/issue/ENG-42",
							"priority":   2,
						},
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient("lin_api_key").WithAPIURL(server.URL)
	issues, err := client.SearchIssues(context.Background(), "greeting", "team-1", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer lin_api_key" {
		t.Errorf("auth header wrong: %q", gotAuth)
	}
	if gotVariables["first"] != float64(5) {
		t.Errorf("limit not passed: %v", gotVariables["first"])
	}

	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	issue := issues[0]
	if issue.Identifier != "ENG-42" || issue.State != "In Progress" || issue.Assignee != "Ada" {
		t.Errorf("issue flattening wrong: %+v", issue)
	}
	if issue.Priority != 2 {
		t.Errorf("priority wrong: %d", issue.Priority)
	}
}

func TestCreateIssue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Variables struct {
				Input map[string]interface{} `json:"input"`
			} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if payload.Variables.Input["teamId"] != "team-1" {
			t.Errorf("teamId not passed: %v", payload.Variables.Input)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{
				"issueCreate": map[string]interface{}{
					"success": true,
					"issue": map[string]interface{}{
						"id":         "issue-9",
						"identifier": "ENG-99",
						"title":      "File greeting bug",
					},
				},
			},
		})
	}))
	defer server.Close()

	client := NewClient("key").WithAPIURL(server.URL)
	issue, err := client.CreateIssue(context.Background(), CreateIssueInput{
		TeamID:      "team-1",
		Title:       "File greeting bug",
		Description: "Repro steps attached.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if issue.Identifier != "ENG-99" {
		t.Errorf("created issue wrong: %+v", issue)
	}
}

func TestCreateIssueRequiresTeamAndTitle(t *testing.T) {
	client := NewClient("key")
	if _, err := client.CreateIssue(context.Background(), CreateIssueInput{Title: "no team"}); err == nil {
		t.Error("expected error without team id")
	}
}

func TestGraphQLErrorsSurface(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{{"message": "rate limited"}},
		})
	}))
	defer server.Close()

	client := NewClient("key").WithAPIURL(server.URL)
	_, err := client.SearchIssues(context.Background(), "anything", "", 5)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected graphql error, got %v", err)
	}
}
