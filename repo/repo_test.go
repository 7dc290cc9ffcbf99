package repo

import (
	"strings"
	"testing"

	"github.com/soham-vohra/git-history-agent/model"
)

func testRef() model.BlockRef {
	return model.BlockRef{
		RepoOwner: "octo",
		RepoName:  "demo",
		Ref:       "main",
		Path:      "app.py",
		StartLine: 3,
		EndLine:   4,
	}
}

func TestSliceContext(t *testing.T) {
	lines := []string{
		"import os",
		"",
		"def main():",
		"    print('hello')",
		"",
		"main()",
	}

	ref := testRef()
	got, err := sliceContext(ref, lines, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CodeBlock != "def main():\n    print('hello')" {
		t.Errorf("code block wrong: %q", got.CodeBlock)
	}
	if got.ContextStartLine != 2 || got.ContextEndLine != 5 {
		t.Errorf("context range wrong: %d-%d", got.ContextStartLine, got.ContextEndLine)
	}
	if !strings.HasPrefix(got.SurroundingCode, "") || !strings.Contains(got.SurroundingCode, "def main():") {
		t.Errorf("surrounding code wrong: %q", got.SurroundingCode)
	}
	if got.FileTotalLines != 6 {
		t.Errorf("total lines wrong: %d", got.FileTotalLines)
	}
	if got.Language != "python" {
		t.Errorf("language wrong: %q", got.Language)
	}
}

func TestSliceContextClampsToFile(t *testing.T) {
	lines := []string{"a", "b", "c"}
	ref := testRef()
	ref.StartLine, ref.EndLine = 1, 3

	got, err := sliceContext(ref, lines, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ContextStartLine != 1 || got.ContextEndLine != 3 {
		t.Errorf("context not clamped: %d-%d", got.ContextStartLine, got.ContextEndLine)
	}
}

func TestSliceContextOutOfBounds(t *testing.T) {
	ref := testRef()
	ref.EndLine = 50

	if _, err := sliceContext(ref, []string{"only", "two"}, 2); err == nil {
		t.Error("expected out-of-bounds error")
	}
}

func TestGuessLanguage(t *testing.T) {
	cases := map[string]string{
		"src/main.py":   "python",
		"lib/index.ts":  "typescript",
		"cmd/main.go":   "go",
		"kernel.c":      "c",
		"widget.cpp":    "cpp",
		"README":        "",
		"notes.txt":     "",
		"app/server.rb": "ruby",
	}
	for path, want := range cases {
		if got := guessLanguage(path); got != want {
			t.Errorf("guessLanguage(%q) = %q, want %q", path, got, want)
		}
	}
}

const blameFixture = "d670460b4b4aece5915caf5c68d12f560a9fe3e4 3 3 2\n" +
	"author Ada Lovelace\n" +
	"author-mail <ada@example.com>\n" +
	"author-time 1700000000\n" +
	"author-tz +0000\n" +
	"summary add main entrypoint\n" +
	"filename app.py\n" +
	"\tdef main():\n" +
	"d670460b4b4aece5915caf5c68d12f560a9fe3e4 4 4\n" +
	"\t    print('hello')\n" +
	"1b2c3d4e5f60718293a4b5c6d7e8f90112233445 5 5 1\n" +
	"author Grace Hopper\n" +
	"author-mail <grace@example.com>\n" +
	"author-time 1710000000\n" +
	"summary call main at import time\n" +
	"filename app.py\n" +
	"\tmain()\n"

func TestParseBlamePorcelain(t *testing.T) {
	entries := parseBlamePorcelain(blameFixture)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Commit != "d670460b4b4aece5915caf5c68d12f560a9fe3e4" {
		t.Errorf("first commit wrong: %s", first.Commit)
	}
	if first.Line != 3 || first.Code != "def main():" {
		t.Errorf("first entry wrong: line=%d code=%q", first.Line, first.Code)
	}
	if first.Author != "Ada Lovelace" || first.AuthorEmail != "ada@example.com" {
		t.Errorf("first author wrong: %q <%s>", first.Author, first.AuthorEmail)
	}
	if first.Summary != "add main entrypoint" {
		t.Errorf("first summary wrong: %q", first.Summary)
	}

	// Repeated-commit header carries no key-value fields; porcelain omits
	// them after the first occurrence.
	second := entries[1]
	if second.Commit != first.Commit || second.Line != 4 {
		t.Errorf("second entry wrong: %+v", second)
	}

	third := entries[2]
	if third.Author != "Grace Hopper" || third.Line != 5 || third.Code != "main()" {
		t.Errorf("third entry wrong: %+v", third)
	}
}

func TestParseBlamePorcelainEmpty(t *testing.T) {
	if entries := parseBlamePorcelain(""); len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestUniqueCommits(t *testing.T) {
	entries := []model.BlameEntry{
		{Commit: "aaa"},
		{Commit: "bbb"},
		{Commit: "aaa"},
		{Commit: "ccc"},
		{Commit: ""},
	}

	shas := uniqueCommits(entries, 10)
	if len(shas) != 3 || shas[0] != "aaa" || shas[1] != "bbb" || shas[2] != "ccc" {
		t.Errorf("unique commits wrong: %v", shas)
	}

	capped := uniqueCommits(entries, 2)
	if len(capped) != 2 {
		t.Errorf("cap not applied: %v", capped)
	}
}

func TestSplitLines(t *testing.T) {
	if got := splitLines("a\nb\n"); len(got) != 2 || got[1] != "b" {
		t.Errorf("trailing newline handling wrong: %v", got)
	}
	if got := splitLines(""); got != nil {
		t.Errorf("empty output should yield nil, got %v", got)
	}
}

func TestGitErrorMessage(t *testing.T) {
	err := &GitError{Args: []string{"show", "main:app.py"}, Stderr: "fatal: path not found"}
	if !strings.Contains(err.Error(), "fatal: path not found") {
		t.Errorf("stderr not surfaced: %v", err)
	}
	if !IsGitError(err) {
		t.Error("IsGitError should match *GitError")
	}
}
