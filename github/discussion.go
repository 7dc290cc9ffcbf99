// PR discussion assembly - raw API payloads condensed into the shape the
// model consumes.

package github

import (
	"context"
	"fmt"

	"github.com/soham-vohra/git-history-agent/model"
)

const (
	maxKeyComments  = 10
	maxReviewQuotes = 5
	summaryLimit    = 500
	commentLimit    = 200
)

// PRDiscussion fetches a pull request and condenses its description,
// reviews and comments into a model.PRDiscussion. Review and comment
// fetch failures degrade to a discussion without key comments.
func (c *Client) PRDiscussion(ctx context.Context, owner, repo string, number int) (model.PRDiscussion, error) {
	pr, err := c.getPullRequest(ctx, owner, repo, number)
	if err != nil {
		return model.PRDiscussion{}, err
	}

	discussion := model.PRDiscussion{
		Number:   pr.Number,
		Title:    pr.Title,
		URL:      pr.HTMLURL,
		State:    pr.State,
		MergedAt: pr.MergedAt,
		Summary:  summarize(pr.Body),
	}

	perKind := maxKeyComments / 2

	if reviewComments, err := c.getReviewComments(ctx, owner, repo, number); err == nil {
		for _, rc := range truncateComments(reviewComments, perKind) {
			discussion.KeyComments = append(discussion.KeyComments,
				fmt.Sprintf("[@%s] %s", rc.User.Login, clip(rc.Body, commentLimit)))
		}
	}

	if issueComments, err := c.getIssueComments(ctx, owner, repo, number); err == nil {
		for _, ic := range truncateComments(issueComments, perKind) {
			discussion.KeyComments = append(discussion.KeyComments,
				fmt.Sprintf("[@%s] %s", ic.User.Login, clip(ic.Body, commentLimit)))
		}
	}

	if reviews, err := c.getReviews(ctx, owner, repo, number); err == nil {
		count := 0
		for _, r := range reviews {
			if r.Body == "" || count == maxReviewQuotes {
				continue
			}
			discussion.KeyComments = append(discussion.KeyComments,
				fmt.Sprintf("[Review @%s - %s] %s", r.User.Login, r.State, clip(r.Body, commentLimit)))
			count++
		}
	}

	if len(discussion.KeyComments) > maxKeyComments {
		discussion.KeyComments = discussion.KeyComments[:maxKeyComments]
	}
	return discussion, nil
}

// PRsForCommits maps commit SHAs to the discussions of PRs containing
// them. Commits outside any PR map to an empty slice; per-commit search
// failures are skipped so one flaky lookup does not sink the history.
func (c *Client) PRsForCommits(ctx context.Context, owner, repo string, shas []string) (map[string][]model.PRDiscussion, error) {
	byCommit := make(map[string][]model.PRDiscussion, len(shas))
	fetched := map[int]model.PRDiscussion{}

	for _, sha := range shas {
		byCommit[sha] = []model.PRDiscussion{}

		numbers, err := c.searchPRNumbers(ctx, owner, repo, sha)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}

		for _, number := range numbers {
			discussion, ok := fetched[number]
			if !ok {
				var err error
				discussion, err = c.PRDiscussion(ctx, owner, repo, number)
				if err != nil {
					continue
				}
				fetched[number] = discussion
			}
			byCommit[sha] = append(byCommit[sha], discussion)
		}
	}
	return byCommit, nil
}

// summarize turns a PR body into a bounded summary.
func summarize(body string) string {
	if body == "" {
		return "No description provided."
	}
	return clip(body, summaryLimit)
}

// clip truncates s to at most n bytes.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// truncateComments drops empty-bodied comments and caps the rest.
func truncateComments(comments []comment, limit int) []comment {
	kept := make([]comment, 0, limit)
	for _, c := range comments {
		if c.Body == "" {
			continue
		}
		kept = append(kept, c)
		if len(kept) == limit {
			break
		}
	}
	return kept
}
