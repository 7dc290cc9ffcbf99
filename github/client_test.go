package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, routes map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.Path == "/search/issues" {
			key = key + "?" + r.URL.Query().Get("q")
		}
		payload, ok := routes[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
			return
		}
		json.NewEncoder(w).Encode(payload)
	}))
}

func TestPRDiscussion(t *testing.T) {
	server := newTestServer(t, map[string]interface{}{
		"/repos/octo/demo/pulls/42": map[string]interface{}{
			"number":    42,
			"title":     "Add greeting",
			"body":      "Adds a hello world entrypoint.",
			"html_url":  "https://github.com/octo/demo/pull/42",
			"state":     "closed",
			"merged_at": "2024-02-01T10:00:00Z",
		},
		"/repos/octo/demo/pulls/42/reviews": []map[string]interface{}{
			{"body": "LGTM", "state": "APPROVED", "user": map[string]string{"login": "reviewer"}},
			{"body": "", "state": "COMMENTED", "user": map[string]string{"login": "quiet"}},
		},
		"/repos/octo/demo/pulls/42/comments": []map[string]interface{}{
			{"body": "Why print instead of logging?", "user": map[string]string{"login": "alice"}},
		},
		"/repos/octo/demo/issues/42/comments": []map[string]interface{}{
			{"body": "Shipping this today.", "user": map[string]string{"login": "bob"}},
		},
	})
	defer server.Close()

	client := NewClient("").WithBaseURL(server.URL)
	discussion, err := client.PRDiscussion(context.Background(), "octo", "demo", 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if discussion.Number != 42 || discussion.Title != "Add greeting" {
		t.Errorf("pr fields wrong: %+v", discussion)
	}
	if discussion.State != "closed" || discussion.MergedAt == "" {
		t.Errorf("state fields wrong: %+v", discussion)
	}
	if discussion.Summary != "Adds a hello world entrypoint." {
		t.Errorf("summary wrong: %q", discussion.Summary)
	}

	joined := strings.Join(discussion.KeyComments, "\n")
	if !strings.Contains(joined, "[@alice] Why print instead of logging?") {
		t.Errorf("review comment missing: %v", discussion.KeyComments)
	}
	if !strings.Contains(joined, "[@bob] Shipping this today.") {
		t.Errorf("issue comment missing: %v", discussion.KeyComments)
	}
	if !strings.Contains(joined, "[Review @reviewer - APPROVED] LGTM") {
		t.Errorf("review summary missing: %v", discussion.KeyComments)
	}
	// Empty review bodies must not produce comments.
	if strings.Contains(joined, "quiet") {
		t.Errorf("empty review should be skipped: %v", discussion.KeyComments)
	}
}

func TestPRDiscussionNotFound(t *testing.T) {
	server := newTestServer(t, nil)
	defer server.Close()

	client := NewClient("").WithBaseURL(server.URL)
	_, err := client.PRDiscussion(context.Background(), "octo", "demo", 999)
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestPRsForCommits(t *testing.T) {
	server := newTestServer(t, map[string]interface{}{
		"/search/issues?repo:octo/demo sha:abc123 type:pr": map[string]interface{}{
			"items": []map[string]interface{}{{"number": 7}},
		},
		"/search/issues?repo:octo/demo sha:def456 type:pr": map[string]interface{}{
			"items": []map[string]interface{}{},
		},
		"/repos/octo/demo/pulls/7": map[string]interface{}{
			"number": 7,
			"title":  "Refactor entrypoint",
			"body":   "Cleanup.",
			"state":  "open",
		},
	})
	defer server.Close()

	client := NewClient("").WithBaseURL(server.URL)
	byCommit, err := client.PRsForCommits(context.Background(), "octo", "demo", []string{"abc123", "def456"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(byCommit["abc123"]) != 1 || byCommit["abc123"][0].Number != 7 {
		t.Errorf("abc123 mapping wrong: %+v", byCommit["abc123"])
	}
	if len(byCommit["def456"]) != 0 {
		t.Errorf("def456 should map to no PRs: %+v", byCommit["def456"])
	}
}

func TestSummarizeAndClip(t *testing.T) {
	if got := summarize(""); got != "No description provided." {
		t.Errorf("empty body summary wrong: %q", got)
	}
	long := strings.Repeat("x", 600)
	if got := summarize(long); len(got) != summaryLimit {
		t.Errorf("summary not clipped: %d bytes", len(got))
	}
}
