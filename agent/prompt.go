// Prompt construction for the history agent.

package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soham-vohra/git-history-agent/model"
)

// systemPrompt sets the model's role. It never varies per request so it
// can live in the cacheable prefix.
const systemPrompt = "You are a code history assistant. " +
	"You answer questions about a specific block of code. " +
	"The backend will give you the repo, file path, and line range. " +
	"When you need details, call the available tools to fetch:\n" +
	"- The current code and its surrounding context\n" +
	"- Git blame information and commit history for the block\n" +
	"- Pull request discussions for commits that touched the block\n" +
	"- Related issues in the team's tracker.\n\n" +
	"Use tools when needed instead of guessing. " +
	"Reference line numbers and commits when useful."

// blockDescription pins the model to the block in focus.
func blockDescription(ref model.BlockRef) string {
	return fmt.Sprintf(
		"You are analyzing this specific block of code in a git repository.\n"+
			"repo_owner: %s\n"+
			"repo_name: %s\n"+
			"ref: %s\n"+
			"path: %s\n"+
			"lines: %d-%d\n\n"+
			"Use the tools to fetch code and history for THIS block only.",
		ref.RepoOwner, ref.RepoName, ref.Ref, ref.Path, ref.StartLine, ref.EndLine)
}

// buildPrefix assembles the cacheable prefix for a subject: the system
// prompt and block description, enriched with pre-resolved code and
// history context when available. Everything here is a pure function of
// the subject, so the cache fingerprint covers it exactly.
func buildPrefix(ref model.BlockRef, code *model.CodeContext, history *model.HistoryContext) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	b.WriteString(blockDescription(ref))

	if code != nil {
		b.WriteString("\n\n## Code context\n")
		writeJSON(&b, code)
	}
	if history != nil {
		b.WriteString("\n\n## History context\n")
		writeJSON(&b, history)
	}
	return b.String()
}

func writeJSON(b *strings.Builder, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.Write(data)
}
