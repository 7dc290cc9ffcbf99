// Package agent orchestrates the tool-calling loop that answers
// questions about a block of code.
//
// Information Hiding:
// - Loop state machine and iteration bound internalized
// - Tool-call fan-out and result ordering invisible to callers
// - Cache fallback decisions hidden behind Answer
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/soham-vohra/git-history-agent/cache"
	"github.com/soham-vohra/git-history-agent/llm"
	"github.com/soham-vohra/git-history-agent/model"
	"github.com/soham-vohra/git-history-agent/session"
	"github.com/soham-vohra/git-history-agent/tools"
)

// ErrEmptyQuestion reports a request with no question to answer.
var ErrEmptyQuestion = errors.New("question is empty")

// DefaultMaxIterations bounds the model-call loop.
const DefaultMaxIterations = 8

// Config tunes the orchestrator.
type Config struct {
	// MaxIterations caps model calls per question. Non-positive means the
	// default.
	MaxIterations int
	// ContextLines and MaxCommits size the pre-resolved cache prefix.
	ContextLines int
	MaxCommits   int
	// ToolTimeout is the per-tool-call execution budget.
	ToolTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.ContextLines <= 0 {
		c.ContextLines = tools.DefaultContextLines
	}
	if c.MaxCommits <= 0 {
		c.MaxCommits = tools.DefaultMaxCommits
	}
	if c.ToolTimeout <= 0 {
		c.ToolTimeout = 30 * time.Second
	}
	return c
}

// ContextResolver pre-resolves code and history for the cacheable prefix.
// Typically the repo service; nil keeps the prefix to prompt text only.
type ContextResolver interface {
	CodeContext(ctx context.Context, ref model.BlockRef, contextLines int) (model.CodeContext, error)
	HistoryContext(ctx context.Context, ref model.BlockRef, maxCommits int) (model.HistoryContext, error)
}

// Answer is the orchestrator's result for one question.
type Answer struct {
	Text       string         `json:"text"`
	Truncated  bool           `json:"truncated"`
	Iterations int            `json:"iterations"`
	SessionID  string         `json:"session_id,omitempty"`
	CacheHit   bool           `json:"cache_hit,omitempty"`
	Usage      llm.TokenUsage `json:"usage"`
}

// Agent runs the bounded tool-calling loop against one provider.
type Agent struct {
	provider llm.Provider
	registry *tools.Registry
	executor *tools.Executor

	sessions *session.Store
	caches   *cache.Manager
	resolver ContextResolver
	logger   *log.Logger

	cfg Config
}

// New creates an agent with the given provider and tool registry.
func New(provider llm.Provider, registry *tools.Registry, cfg Config) *Agent {
	cfg = cfg.withDefaults()
	return &Agent{
		provider: provider,
		registry: registry,
		executor: tools.NewExecutor(cfg.ToolTimeout),
		logger:   log.Default(),
		cfg:      cfg,
	}
}

// WithSessions attaches a session store for multi-turn conversations.
func (a *Agent) WithSessions(store *session.Store) *Agent {
	a.sessions = store
	return a
}

// WithCache attaches a context cache manager. It is only used when the
// provider reports the caching capability.
func (a *Agent) WithCache(manager *cache.Manager) *Agent {
	a.caches = manager
	return a
}

// WithContextResolver attaches a resolver used to enrich cache prefixes.
func (a *Agent) WithContextResolver(resolver ContextResolver) *Agent {
	a.resolver = resolver
	return a
}

// WithLogger replaces the default logger.
func (a *Agent) WithLogger(logger *log.Logger) *Agent {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Provider exposes the configured provider for introspection endpoints.
func (a *Agent) Provider() llm.Provider { return a.provider }

// Registry exposes the tool registry for introspection endpoints.
func (a *Agent) Registry() *tools.Registry { return a.registry }

// Answer runs the tool-calling loop for one question about one block.
//
// The subject is validated before anything else touches it. When a
// session store is attached, an empty sessionID creates a new session and
// a stale one fails with session.ErrNotFound; the user question and final
// answer are appended to the transcript in one batch. Provider failures
// propagate as *llm.ProviderError. Hitting the iteration bound yields a
// truncated answer, not an error.
func (a *Agent) Answer(ctx context.Context, subject model.BlockRef, question, sessionID string) (Answer, error) {
	if err := subject.Validate(); err != nil {
		return Answer{}, err
	}
	if strings.TrimSpace(question) == "" {
		return Answer{}, ErrEmptyQuestion
	}

	var transcript []session.Turn
	if a.sessions != nil {
		if sessionID == "" {
			sessionID = a.sessions.Create(&subject)
		} else {
			prior, err := a.sessions.Get(sessionID)
			if err != nil {
				return Answer{}, err
			}
			transcript = prior.Turns
		}
	}

	cacheProvider, handle, cacheHit := a.resolveCache(ctx, subject)

	messages := a.buildMessages(subject, question, transcript, handle == "")
	toolDefs := a.registry.Definitions()

	answer := Answer{SessionID: sessionID, CacheHit: cacheHit}

	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		answer.Iterations = iteration

		var resp llm.LLMResponse
		var err error
		if handle != "" {
			resp, err = cacheProvider.ChatWithCache(ctx, handle, messages)
		} else {
			resp, err = a.provider.ChatWithTools(ctx, messages, toolDefs)
		}
		if err != nil {
			return Answer{}, err
		}
		if resp.Usage != nil {
			answer.Usage.Add(resp.Usage)
		}

		if resp.Final() {
			answer.Text = resp.Content
			a.record(subject, question, answer)
			return answer, nil
		}

		a.logger.Debug("model requested tools",
			"iteration", iteration, "calls", len(resp.ToolCalls))

		messages = append(messages, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		results := a.runToolCalls(ctx, subject, resp.ToolCalls)
		for i, call := range resp.ToolCalls {
			messages = append(messages, llm.ToolMessage(call.ID, results[i]))
		}
	}

	answer.Text = "I could not finish investigating this block within the " +
		"allowed number of tool calls. Try asking a narrower question " +
		"about it."
	answer.Truncated = true
	a.logger.Warn("iteration bound reached",
		"subject", subject.String(), "iterations", a.cfg.MaxIterations)
	a.record(subject, question, answer)
	return answer, nil
}

// resolveCache decides whether this request runs against a provider-side
// context cache. Caching is skipped, never fatal, when the provider lacks
// the capability or the cache cannot be created.
func (a *Agent) resolveCache(ctx context.Context, subject model.BlockRef) (llm.CacheCapable, string, bool) {
	if a.caches == nil || !a.provider.Capabilities().ContextCaching {
		return nil, "", false
	}
	cacheProvider, ok := a.provider.(llm.CacheCapable)
	if !ok {
		a.logger.Warn("provider reports caching but lacks the cache interface",
			"provider", a.provider.Name())
		return nil, "", false
	}

	prefix := llm.CachePrefix{
		DisplayName:       subject.String(),
		SystemInstruction: systemPrompt,
		Content:           buildPrefix(subject, a.resolveCode(ctx, subject), a.resolveHistory(ctx, subject)),
		Tools:             a.registry.Definitions(),
	}

	handle, created, err := a.caches.GetOrCreate(ctx, subject, prefix)
	if err != nil {
		a.logger.Warn("context cache unavailable, falling back to uncached",
			"subject", subject.String(), "err", err)
		return nil, "", false
	}
	return cacheProvider, handle, !created
}

func (a *Agent) resolveCode(ctx context.Context, subject model.BlockRef) *model.CodeContext {
	if a.resolver == nil {
		return nil
	}
	code, err := a.resolver.CodeContext(ctx, subject, a.cfg.ContextLines)
	if err != nil {
		a.logger.Debug("prefix code context unavailable", "err", err)
		return nil
	}
	return &code
}

func (a *Agent) resolveHistory(ctx context.Context, subject model.BlockRef) *model.HistoryContext {
	if a.resolver == nil {
		return nil
	}
	history, err := a.resolver.HistoryContext(ctx, subject, a.cfg.MaxCommits)
	if err != nil {
		a.logger.Debug("prefix history context unavailable", "err", err)
		return nil
	}
	return &history
}

// buildMessages assembles the conversation sent to the provider. On the
// cached path the prefix lives server-side, so only the transcript and the
// question travel.
func (a *Agent) buildMessages(subject model.BlockRef, question string, transcript []session.Turn, includePrefix bool) []llm.ChatMessage {
	var messages []llm.ChatMessage
	if includePrefix {
		messages = append(messages,
			llm.SystemMessage(systemPrompt),
			llm.UserMessage(blockDescription(subject)),
		)
	}
	for _, turn := range transcript {
		messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, llm.UserMessage(question))
}

// runToolCalls executes one model turn's tool calls concurrently and
// returns their serialized results in the requested order. Unknown tools
// and bad arguments become failed results the model can react to.
func (a *Agent) runToolCalls(ctx context.Context, subject model.BlockRef, calls []llm.ToolCall) []string {
	results := make([]string, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = a.runToolCall(ctx, subject, call)
		}(i, call)
	}
	wg.Wait()

	return results
}

func (a *Agent) runToolCall(ctx context.Context, subject model.BlockRef, call llm.ToolCall) string {
	tool, ok := a.registry.Get(call.Name)
	if !ok {
		a.logger.Warn("model requested unknown tool", "tool", call.Name)
		return serializeResult(tools.FailureResultf(
			"unknown tool %q; available tools: %s",
			call.Name, strings.Join(a.registry.Names(), ", ")))
	}

	args := injectSubject(call.Arguments, subject)
	result, err := a.executor.Execute(ctx, tool, args)
	if err != nil {
		// Only context cancellation reaches here; surface it as a failed
		// result so the transcript stays consistent.
		return serializeResult(tools.FailureResult(err))
	}
	if !result.Success() {
		a.logger.Debug("tool call failed", "tool", call.Name, "err", result.Error)
	}
	return serializeResult(result)
}

// injectSubject adds the block in focus to the model's arguments. The
// model never supplies the subject itself; the backend knows the block.
func injectSubject(args json.RawMessage, subject model.BlockRef) json.RawMessage {
	parsed := map[string]interface{}{}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &parsed); err != nil {
			parsed = map[string]interface{}{}
		}
	}
	parsed["block_ref"] = subject

	merged, err := json.Marshal(parsed)
	if err != nil {
		return args
	}
	return merged
}

// serializeResult renders a tool result as the JSON payload sent back to
// the model.
func serializeResult(result tools.ToolResult) string {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"output":"","error":%q}`, err.Error())
	}
	return string(data)
}

// record appends the question and answer to the session transcript in one
// batch so a concurrent request never observes half a turn.
func (a *Agent) record(subject model.BlockRef, question string, answer Answer) {
	if a.sessions == nil || answer.SessionID == "" {
		return
	}
	err := a.sessions.Append(answer.SessionID,
		session.Turn{Role: "user", Content: question, Subject: &subject},
		session.Turn{Role: "assistant", Content: answer.Text},
	)
	if err != nil {
		a.logger.Warn("failed to record turns", "session", answer.SessionID, "err", err)
	}
}
