// Code context extraction - block slicing and language detection.

package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/soham-vohra/git-history-agent/model"
)

// CodeContext extracts the block's code plus contextLines of surrounding
// lines from the file as of the block's ref.
func (s *Service) CodeContext(ctx context.Context, ref model.BlockRef, contextLines int) (model.CodeContext, error) {
	if err := ref.Validate(); err != nil {
		return model.CodeContext{}, err
	}
	if contextLines < 0 {
		contextLines = 0
	}

	repoPath, err := s.repoPath(ref)
	if err != nil {
		return model.CodeContext{}, err
	}

	lines, err := s.fileAtRef(ctx, repoPath, ref)
	if err != nil {
		return model.CodeContext{}, err
	}

	return sliceContext(ref, lines, contextLines)
}

// sliceContext builds a CodeContext from the full file contents. Split out
// from CodeContext so the range arithmetic is testable without a repository.
func sliceContext(ref model.BlockRef, lines []string, contextLines int) (model.CodeContext, error) {
	total := len(lines)
	if ref.EndLine > total {
		return model.CodeContext{}, fmt.Errorf(
			"line range %d-%d out of bounds for file with %d lines",
			ref.StartLine, ref.EndLine, total)
	}

	ctxStart := ref.StartLine - contextLines
	if ctxStart < 1 {
		ctxStart = 1
	}
	ctxEnd := ref.EndLine + contextLines
	if ctxEnd > total {
		ctxEnd = total
	}

	return model.CodeContext{
		BlockRef:         ref,
		CodeBlock:        strings.Join(lines[ref.StartLine-1:ref.EndLine], "\n"),
		SurroundingCode:  strings.Join(lines[ctxStart-1:ctxEnd], "\n"),
		ContextStartLine: ctxStart,
		ContextEndLine:   ctxEnd,
		FileTotalLines:   total,
		Language:         guessLanguage(ref.Path),
	}, nil
}

// guessLanguage maps a file extension to a language name for syntax hints
// in the prompt. Unknown extensions return the empty string.
func guessLanguage(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return "python"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".java":
		return "java"
	case ".cpp", ".cc", ".cxx", ".hpp":
		return "cpp"
	case ".c", ".h":
		return "c"
	case ".go":
		return "go"
	case ".rs":
		return "rust"
	case ".rb":
		return "ruby"
	case ".php":
		return "php"
	default:
		return ""
	}
}
