// Package model defines the shared data model for the git-history agent.
//
// Information Hiding:
// - Subject validation rules centralized here
// - Context shapes shared between collaborators and the orchestrator
package model

import (
	"errors"
	"fmt"
)

// ErrInvalidSubject reports a malformed block reference. It is returned
// before any external call is made.
var ErrInvalidSubject = errors.New("invalid subject reference")

// BlockRef identifies a block of code in a git repository: owner, repo,
// ref (branch/tag/sha), file path and a 1-indexed inclusive line range.
// Immutable once constructed; used as part of cache fingerprints and logs.
type BlockRef struct {
	RepoOwner string `json:"repo_owner"`
	RepoName  string `json:"repo_name"`
	Ref       string `json:"ref"`
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Validate checks that the reference is well-formed.
func (b BlockRef) Validate() error {
	switch {
	case b.RepoOwner == "":
		return fmt.Errorf("%w: repo_owner is empty", ErrInvalidSubject)
	case b.RepoName == "":
		return fmt.Errorf("%w: repo_name is empty", ErrInvalidSubject)
	case b.Ref == "":
		return fmt.Errorf("%w: ref is empty", ErrInvalidSubject)
	case b.Path == "":
		return fmt.Errorf("%w: path is empty", ErrInvalidSubject)
	case b.StartLine < 1:
		return fmt.Errorf("%w: start_line %d < 1", ErrInvalidSubject, b.StartLine)
	case b.EndLine < b.StartLine:
		return fmt.Errorf("%w: end_line %d < start_line %d", ErrInvalidSubject, b.EndLine, b.StartLine)
	}
	return nil
}

// String renders the reference for logs and cache display names.
func (b BlockRef) String() string {
	return fmt.Sprintf("%s/%s@%s:%s#%d-%d",
		b.RepoOwner, b.RepoName, b.Ref, b.Path, b.StartLine, b.EndLine)
}

// CodeContext is the extracted source for a block plus surrounding lines.
// Produced by the repo collaborator; opaque text to the orchestrator.
type CodeContext struct {
	BlockRef BlockRef `json:"block_ref"`

	CodeBlock       string `json:"code_block"`
	SurroundingCode string `json:"surrounding_code"`

	ContextStartLine int `json:"context_start_line"`
	ContextEndLine   int `json:"context_end_line"`
	FileTotalLines   int `json:"file_total_lines"`

	Language string `json:"language,omitempty"`
}

// BlameEntry is per-line blame information for one line of a block.
type BlameEntry struct {
	Line int    `json:"line"`
	Code string `json:"code"`

	Commit      string `json:"commit"`
	Author      string `json:"author,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
	AuthorTime  string `json:"author_time,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// BlameBlock collects blame entries for every line in a block.
type BlameBlock struct {
	BlockRef BlockRef     `json:"block_ref"`
	Entries  []BlameEntry `json:"entries"`
}

// CommitSummary describes one commit that touched a block.
type CommitSummary struct {
	SHA         string `json:"sha"`
	Author      string `json:"author"`
	AuthorEmail string `json:"author_email,omitempty"`
	Date        string `json:"date"`
	Message     string `json:"message"`

	DiffHunksForBlock []string `json:"diff_hunks_for_block,omitempty"`
	PRNumbers         []int    `json:"pr_numbers,omitempty"`
}

// PRDiscussion summarizes one pull request's discussion.
type PRDiscussion struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url,omitempty"`

	State    string `json:"state"`
	MergedAt string `json:"merged_at,omitempty"`

	Summary     string   `json:"summary"`
	KeyComments []string `json:"key_comments,omitempty"`
}

// HistoryContext is the git-derived history for a block: blame, commit
// summaries (most recent first) and any associated PR discussions.
type HistoryContext struct {
	BlockRef BlockRef `json:"block_ref"`

	Blame   *BlameBlock     `json:"blame,omitempty"`
	Commits []CommitSummary `json:"commits"`
	PRs     []PRDiscussion  `json:"prs"`
}
