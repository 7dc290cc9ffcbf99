// Blame extraction - git blame --line-porcelain for a line range.

package repo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/soham-vohra/git-history-agent/model"
)

// BlameBlock runs git blame over the block's line range and returns one
// entry per line.
func (s *Service) BlameBlock(ctx context.Context, ref model.BlockRef) (model.BlameBlock, error) {
	if err := ref.Validate(); err != nil {
		return model.BlameBlock{}, err
	}

	repoPath, err := s.repoPath(ref)
	if err != nil {
		return model.BlameBlock{}, err
	}

	out, err := s.runGit(ctx, repoPath,
		"blame",
		"-L", fmt.Sprintf("%d,%d", ref.StartLine, ref.EndLine),
		"--line-porcelain",
		ref.Ref,
		"--", ref.Path,
	)
	if err != nil {
		return model.BlameBlock{}, err
	}

	return model.BlameBlock{
		BlockRef: ref,
		Entries:  parseBlamePorcelain(out),
	}, nil
}

// parseBlamePorcelain parses `git blame --line-porcelain` output. Each
// line of the blamed range produces a header line (sha, original line,
// final line), a run of key-value header fields, and finally the code
// line prefixed with a tab.
func parseBlamePorcelain(out string) []model.BlameEntry {
	var entries []model.BlameEntry
	var current *model.BlameEntry

	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "\t") {
			if current != nil {
				current.Code = line[1:]
				entries = append(entries, *current)
				current = nil
			}
			continue
		}

		if current == nil {
			fields := strings.Fields(line)
			if len(fields) < 3 {
				continue
			}
			finalLine, err := strconv.Atoi(fields[2])
			if err != nil {
				continue
			}
			current = &model.BlameEntry{
				Commit: fields[0],
				Line:   finalLine,
			}
			continue
		}

		key, value, found := strings.Cut(line, " ")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "author":
			current.Author = value
		case "author-mail":
			current.AuthorEmail = strings.Trim(value, "<>")
		case "author-time":
			current.AuthorTime = value
		case "summary":
			current.Summary = value
		case "filename":
			current.Filename = value
		}
	}

	return entries
}
