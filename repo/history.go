// History building - blame SHAs expanded into commit summaries, with
// optional pull request linkage through an injected source.

package repo

import (
	"context"
	"strings"

	"github.com/soham-vohra/git-history-agent/model"
)

// PRSource links commits to their pull request discussions. Typically the
// GitHub client; nil disables PR enrichment.
type PRSource interface {
	PRsForCommits(ctx context.Context, owner, repo string, shas []string) (map[string][]model.PRDiscussion, error)
}

// WithPRSource attaches a PR source used to enrich history contexts.
func (s *Service) WithPRSource(source PRSource) *Service {
	s.prs = source
	return s
}

// HistoryContext builds the git-derived history for a block: blame for the
// line range, summaries for the commits blame surfaced (most recent blame
// order, deduplicated, capped at maxCommits) and any linked PR discussions.
// A block whose blame fails still yields an empty history rather than an
// error; a file deleted at the ref is a history question with no answer.
func (s *Service) HistoryContext(ctx context.Context, ref model.BlockRef, maxCommits int) (model.HistoryContext, error) {
	if err := ref.Validate(); err != nil {
		return model.HistoryContext{}, err
	}
	if maxCommits < 1 {
		maxCommits = 10
	}

	history := model.HistoryContext{
		BlockRef: ref,
		Commits:  []model.CommitSummary{},
		PRs:      []model.PRDiscussion{},
	}

	blame, err := s.BlameBlock(ctx, ref)
	if err != nil {
		if IsGitError(err) {
			return history, nil
		}
		return model.HistoryContext{}, err
	}
	history.Blame = &blame

	shas := uniqueCommits(blame.Entries, maxCommits)
	if len(shas) == 0 {
		return history, nil
	}

	repoPath, err := s.repoPath(ref)
	if err != nil {
		return model.HistoryContext{}, err
	}

	for _, sha := range shas {
		summary, err := s.commitSummary(ctx, repoPath, sha, ref.Path)
		if err != nil {
			continue
		}
		history.Commits = append(history.Commits, summary)
	}

	if s.prs != nil {
		s.linkPRs(ctx, ref, &history, shas)
	}

	return history, nil
}

// commitSummary fetches one commit's metadata and its diff restricted to
// the block's file.
func (s *Service) commitSummary(ctx context.Context, repoPath, sha, path string) (model.CommitSummary, error) {
	meta, err := s.runGit(ctx, repoPath,
		"show", "-s", "--format=%H%n%an%n%ae%n%ad%n%B", sha)
	if err != nil {
		return model.CommitSummary{}, err
	}

	lines := strings.Split(meta, "\n")
	if len(lines) < 4 {
		return model.CommitSummary{}, &GitError{Args: []string{"show", sha}, Stderr: "short metadata"}
	}

	summary := model.CommitSummary{
		SHA:         lines[0],
		Author:      lines[1],
		AuthorEmail: lines[2],
		Date:        lines[3],
		Message:     strings.TrimSpace(strings.Join(lines[4:], "\n")),
	}

	if diff, err := s.runGit(ctx, repoPath, "show", sha, "--", path); err == nil && diff != "" {
		summary.DiffHunksForBlock = []string{diff}
	}
	return summary, nil
}

// linkPRs attaches PR numbers to commits and collects unique discussions.
// PR lookup failures degrade to a history without PRs.
func (s *Service) linkPRs(ctx context.Context, ref model.BlockRef, history *model.HistoryContext, shas []string) {
	byCommit, err := s.prs.PRsForCommits(ctx, ref.RepoOwner, ref.RepoName, shas)
	if err != nil {
		return
	}

	seen := map[int]bool{}
	for i := range history.Commits {
		for _, pr := range byCommit[history.Commits[i].SHA] {
			history.Commits[i].PRNumbers = append(history.Commits[i].PRNumbers, pr.Number)
			if !seen[pr.Number] {
				seen[pr.Number] = true
				history.PRs = append(history.PRs, pr)
			}
		}
	}
}

// uniqueCommits returns blame commit SHAs in first-seen order, capped.
func uniqueCommits(entries []model.BlameEntry, limit int) []string {
	seen := map[string]bool{}
	var shas []string
	for _, entry := range entries {
		if entry.Commit == "" || seen[entry.Commit] {
			continue
		}
		seen[entry.Commit] = true
		shas = append(shas, entry.Commit)
		if len(shas) == limit {
			break
		}
	}
	return shas
}
