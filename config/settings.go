// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Provider-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	LLM      LLMConfig
	Agent    AgentConfig
	Sessions SessionConfig
	Cache    CacheConfig
	Server   ServerConfig
	Repos    RepoConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64
}

// AgentConfig holds orchestrator execution configuration.
type AgentConfig struct {
	MaxIterations int
	ContextLines  int
	MaxCommits    int
	ToolTimeout   time.Duration
}

// SessionConfig holds the session store's eviction parameters.
type SessionConfig struct {
	TTL         time.Duration
	MaxSessions int
}

// CacheConfig holds context caching parameters.
type CacheConfig struct {
	// Enabled requests context caching; it only takes effect on providers
	// that support it.
	Enabled bool
	TTL     time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	ListenAddr string
}

// RepoConfig locates local repositories and external collaborators.
type RepoConfig struct {
	Root         string
	GitHubAPIKey string
	LinearAPIKey string
}

// providerInfo holds configuration for a specific LLM provider.
type providerInfo struct {
	modelEnv     string
	defaultModel string
	apiKeyEnv    string
	caching      bool
}

// Supported providers and their configuration. Only Gemini exposes a
// context caching service.
var providers = map[string]providerInfo{
	"openai":    {"OPENAI_MODEL", "gpt-4.1-mini", "OPENAI_API_KEY", false},
	"anthropic": {"ANTHROPIC_MODEL", "claude-sonnet-4-20250514", "ANTHROPIC_API_KEY", false},
	"gemini":    {"GEMINI_MODEL", "gemini-1.5-pro", "GEMINI_API_KEY", true},
}

// Provider aliases map to canonical names.
var providerAliases = map[string]string{
	"claude": "anthropic",
	"google": "gemini",
	"gpt":    "openai",
}

// New creates settings for the specified provider, loading values from
// environment variables. An empty provider falls back to LLM_PROVIDER,
// then to openai. Returns an error if the provider is unknown or an
// environment variable holds an invalid value.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = os.Getenv("LLM_PROVIDER")
	}
	if provider == "" {
		provider = "openai"
	}
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return Settings{}, err
	}

	maxTokens, err := getEnvUint32("LLM_MAX_TOKENS", 4096)
	if err != nil {
		return Settings{}, err
	}
	temperature, err := getEnvFloat64("LLM_TEMPERATURE", 0.7)
	if err != nil {
		return Settings{}, err
	}
	maxIterations, err := getEnvInt("AGENT_MAX_ITERATIONS", 8)
	if err != nil {
		return Settings{}, err
	}
	contextLines, err := getEnvInt("AGENT_CONTEXT_LINES", 10)
	if err != nil {
		return Settings{}, err
	}
	maxCommits, err := getEnvInt("AGENT_MAX_COMMITS", 10)
	if err != nil {
		return Settings{}, err
	}
	toolTimeout, err := getEnvSeconds("AGENT_TOOL_TIMEOUT_SECONDS", 30*time.Second)
	if err != nil {
		return Settings{}, err
	}
	sessionTTL, err := getEnvSeconds("SESSION_TTL_SECONDS", time.Hour)
	if err != nil {
		return Settings{}, err
	}
	maxSessions, err := getEnvInt("MAX_SESSIONS", 1000)
	if err != nil {
		return Settings{}, err
	}
	cacheTTL, err := getEnvSeconds("CACHE_TTL_SECONDS", time.Hour)
	if err != nil {
		return Settings{}, err
	}
	caching, err := getEnvBool("CONTEXT_CACHING", info.caching)
	if err != nil {
		return Settings{}, err
	}

	model := os.Getenv(info.modelEnv)
	if model == "" {
		model = info.defaultModel
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	reposRoot := os.Getenv("REPOS_ROOT")
	if reposRoot == "" {
		reposRoot = "repos"
	}

	return Settings{
		LLM: LLMConfig{
			Provider:    provider,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
		Agent: AgentConfig{
			MaxIterations: maxIterations,
			ContextLines:  contextLines,
			MaxCommits:    maxCommits,
			ToolTimeout:   toolTimeout,
		},
		Sessions: SessionConfig{
			TTL:         sessionTTL,
			MaxSessions: maxSessions,
		},
		Cache: CacheConfig{
			// Caching only takes effect when the provider can serve it.
			Enabled: caching && info.caching,
			TTL:     cacheTTL,
		},
		Server: ServerConfig{
			ListenAddr: listenAddr,
		},
		Repos: RepoConfig{
			Root:         reposRoot,
			GitHubAPIKey: os.Getenv("GITHUB_API_KEY"),
			LinearAPIKey: os.Getenv("LINEAR_API_KEY"),
		},
	}, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeProvider converts provider aliases to canonical names.
func normalizeProvider(provider string) string {
	provider = strings.ToLower(provider)
	if canonical, ok := providerAliases[provider]; ok {
		return canonical
	}
	return provider
}

// getProviderInfo returns configuration for a provider.
func getProviderInfo(provider string) (providerInfo, error) {
	info, ok := providers[provider]
	if !ok {
		return providerInfo{}, fmt.Errorf("unknown provider: %q", provider)
	}
	return info, nil
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(info.apiKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", info.apiKeyEnv)
	}
	return key, nil
}

// ModelFor returns the model for a provider, checking environment first.
func ModelFor(provider string) (string, error) {
	provider = normalizeProvider(provider)

	info, err := getProviderInfo(provider)
	if err != nil {
		return "", err
	}

	if val := os.Getenv(info.modelEnv); val != "" {
		return val, nil
	}
	return info.defaultModel, nil
}

// SupportsCaching reports whether a provider exposes context caching.
func SupportsCaching(provider string) bool {
	info, err := getProviderInfo(normalizeProvider(provider))
	return err == nil && info.caching
}

// SupportedProviders returns the sorted list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(providers))
	for name := range providers {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return b, nil
}

func getEnvSeconds(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	seconds, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return time.Duration(seconds) * time.Second, nil
}
