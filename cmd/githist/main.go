// Package main provides the githist CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/soham-vohra/git-history-agent/cli"
	"github.com/soham-vohra/git-history-agent/model"
)

var (
	// Global flags
	provider string
	maxIter  int
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "githist",
		Short: "Answer questions about code using its git history",
		Long: `An LLM agent that answers questions about a specific block of code
by consulting the repository's git history: blame, commits, diffs, and
pull request discussions.

Questions are answered via a bounded tool-calling loop; the model decides
which context to fetch (code, history, PR discussions, issue tracker).`,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, gemini, anthropic)")
	rootCmd.PersistentFlags().IntVarP(&maxIter, "max-iter", "m", 0, "Maximum model calls per question (0 = configured default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		MaxIter:  maxIter,
		Verbose:  verbose,
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(context.Background(), options())
		},
	}
}

func askCmd() *cobra.Command {
	var (
		owner     string
		repoName  string
		ref       string
		path      string
		startLine int
		endLine   int
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question about a block of code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subject := model.BlockRef{
				RepoOwner: owner,
				RepoName:  repoName,
				Ref:       ref,
				Path:      path,
				StartLine: startLine,
				EndLine:   endLine,
			}
			return cli.Ask(context.Background(), subject, args[0], options())
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner")
	cmd.Flags().StringVar(&repoName, "repo", "", "Repository name")
	cmd.Flags().StringVar(&ref, "ref", "main", "Git ref (branch, tag, or sha)")
	cmd.Flags().StringVar(&path, "path", "", "File path within the repository")
	cmd.Flags().IntVar(&startLine, "start", 0, "First line of the block (1-indexed)")
	cmd.Flags().IntVar(&endLine, "end", 0, "Last line of the block (inclusive)")

	return cmd
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List conversation sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListSessions(options())
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(options())
		},
	}
}
