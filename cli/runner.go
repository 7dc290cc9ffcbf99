// Command execution for CLI commands.
//
// Information Hiding:
// - Component wiring hidden behind build helpers
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"

	"github.com/soham-vohra/git-history-agent/agent"
	"github.com/soham-vohra/git-history-agent/api"
	"github.com/soham-vohra/git-history-agent/cache"
	"github.com/soham-vohra/git-history-agent/config"
	"github.com/soham-vohra/git-history-agent/github"
	"github.com/soham-vohra/git-history-agent/linear"
	"github.com/soham-vohra/git-history-agent/llm"
	"github.com/soham-vohra/git-history-agent/model"
	"github.com/soham-vohra/git-history-agent/repo"
	"github.com/soham-vohra/git-history-agent/session"
	"github.com/soham-vohra/git-history-agent/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	MaxIter  int
	Verbose  bool
}

// components is everything a command needs wired together.
type components struct {
	settings config.Settings
	agent    *agent.Agent
	sessions *session.Store
	logger   *log.Logger
}

// build wires the full component graph from settings.
func build(opts Options) (*components, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.MaxIter > 0 {
		settings.Agent.MaxIterations = opts.MaxIter
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "githist",
	})
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	provider, err := buildProvider(settings)
	if err != nil {
		return nil, err
	}

	repoService := repo.NewService(settings.Repos.Root)
	githubClient := github.NewClient(settings.Repos.GitHubAPIKey)
	repoService.WithPRSource(githubClient)

	registry := tools.NewRegistry()
	register := func(tool tools.Tool) error {
		return registry.Register(tool)
	}
	if err := register(tools.NewCodeContextTool(repoService)); err != nil {
		return nil, err
	}
	if err := register(tools.NewHistoryContextTool(repoService)); err != nil {
		return nil, err
	}
	if err := register(tools.NewPRDiscussionTool(githubClient)); err != nil {
		return nil, err
	}
	if settings.Repos.LinearAPIKey != "" {
		linearClient := linear.NewClient(settings.Repos.LinearAPIKey)
		if err := register(tools.NewSearchLinearIssuesTool(linearClient)); err != nil {
			return nil, err
		}
		if err := register(tools.NewCreateLinearIssueTool(linearClient)); err != nil {
			return nil, err
		}
	}

	sessions := session.NewStore(settings.Sessions.TTL, settings.Sessions.MaxSessions)

	a := agent.New(provider, registry, agent.Config{
		MaxIterations: settings.Agent.MaxIterations,
		ContextLines:  settings.Agent.ContextLines,
		MaxCommits:    settings.Agent.MaxCommits,
		ToolTimeout:   settings.Agent.ToolTimeout,
	}).
		WithSessions(sessions).
		WithContextResolver(repoService).
		WithLogger(logger)

	if settings.Cache.Enabled {
		if cacheProvider, ok := provider.(llm.CacheCapable); ok {
			a.WithCache(cache.NewManager(cacheProvider, settings.Cache.TTL))
		} else {
			logger.Warn("context caching requested but provider does not support it",
				"provider", provider.Name())
		}
	}

	return &components{
		settings: settings,
		agent:    a,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// buildProvider creates the configured LLM provider.
func buildProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}
	return llm.NewProviderBuilder(providerType).
		Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}

// Serve runs the HTTP server until interrupted.
func Serve(ctx context.Context, opts Options) error {
	c, err := build(opts)
	if err != nil {
		return err
	}

	server := api.NewServer(
		api.Config{ListenAddr: c.settings.Server.ListenAddr},
		c.agent, c.sessions, c.logger,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return server.Shutdown()
	}
}

// Ask answers one question about a block from the command line and prints
// the answer.
func Ask(ctx context.Context, subject model.BlockRef, question string, opts Options) error {
	c, err := build(opts)
	if err != nil {
		return err
	}

	answer, err := c.agent.Answer(ctx, subject, question, "")
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if answer.Truncated {
		fmt.Fprintln(os.Stderr, "(answer truncated: iteration limit reached)")
	}
	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "iterations=%d tokens=%d session=%s\n",
			answer.Iterations, answer.Usage.TotalTokens, answer.SessionID)
	}
	return nil
}

// ListSessions prints live sessions and store stats.
func ListSessions(opts Options) error {
	c, err := build(opts)
	if err != nil {
		return err
	}

	stats := c.sessions.Stats()
	fmt.Printf("sessions: %d active / %d total (max %d, ttl %s)\n",
		stats.ActiveSessions, stats.TotalSessions, stats.MaxSessions, stats.TTL)
	for _, s := range c.sessions.List() {
		fmt.Printf("  %s  turns=%d  last=%s\n",
			s.ID, len(s.Turns), s.LastTouched.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// ListTools prints the registered tools.
func ListTools(opts Options) error {
	c, err := build(opts)
	if err != nil {
		return err
	}

	for _, meta := range c.agent.Registry().List() {
		fmt.Println(meta.String())
		if opts.Verbose {
			for _, p := range meta.Parameters {
				fmt.Printf("  %s (%s, required=%s): %s\n",
					p.Name, p.ParamType, strconv.FormatBool(p.Required), p.Description)
			}
		}
	}
	return nil
}
