package config

import (
	"os"
	"testing"
	"time"
)

func TestNewValidProvider(t *testing.T) {
	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", settings.LLM.Provider)
	}
	if settings.Agent.MaxIterations != 8 {
		t.Errorf("expected default 8 iterations, got %d", settings.Agent.MaxIterations)
	}
	if settings.Sessions.TTL != time.Hour || settings.Sessions.MaxSessions != 1000 {
		t.Errorf("session defaults wrong: %+v", settings.Sessions)
	}
	if settings.Cache.Enabled {
		t.Error("openai must not enable context caching")
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("claude")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected provider 'anthropic' (normalized from 'claude'), got %q", settings.LLM.Provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New("unknown_provider")
	if err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestNewFallsBackToEnvProvider(t *testing.T) {
	original := os.Getenv("LLM_PROVIDER")
	os.Setenv("LLM_PROVIDER", "gemini")
	defer os.Setenv("LLM_PROVIDER", original)

	settings, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.LLM.Provider != "gemini" {
		t.Errorf("expected provider from env, got %q", settings.LLM.Provider)
	}
	if !settings.Cache.Enabled {
		t.Error("gemini should enable context caching by default")
	}
}

func TestCachingCanBeDisabled(t *testing.T) {
	original := os.Getenv("CONTEXT_CACHING")
	os.Setenv("CONTEXT_CACHING", "false")
	defer os.Setenv("CONTEXT_CACHING", original)

	settings, err := New("gemini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Cache.Enabled {
		t.Error("CONTEXT_CACHING=false should disable caching")
	}
}

func TestCachingNeverEnabledWithoutSupport(t *testing.T) {
	original := os.Getenv("CONTEXT_CACHING")
	os.Setenv("CONTEXT_CACHING", "true")
	defer os.Setenv("CONTEXT_CACHING", original)

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Cache.Enabled {
		t.Error("caching must stay off for providers without the capability")
	}
}

func TestAPIKeyForValidProvider(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Setenv("OPENAI_API_KEY", "test-key")
	defer os.Setenv("OPENAI_API_KEY", original)

	key, err := APIKeyFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "test-key" {
		t.Errorf("expected 'test-key', got %q", key)
	}
}

func TestAPIKeyForMissing(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", original)

	_, err := APIKeyFor("openai")
	if err == nil {
		t.Error("expected error for missing API key")
	}
}

func TestModelFor(t *testing.T) {
	model, err := ModelFor("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model == "" {
		t.Error("expected non-empty model")
	}

	original := os.Getenv("GEMINI_MODEL")
	os.Setenv("GEMINI_MODEL", "gemini-1.5-flash")
	defer os.Setenv("GEMINI_MODEL", original)

	model, err = ModelFor("google")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if model != "gemini-1.5-flash" {
		t.Errorf("env model override ignored: %q", model)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	original := os.Getenv("LLM_MAX_TOKENS")
	os.Setenv("LLM_MAX_TOKENS", "not-a-number")
	defer os.Setenv("LLM_MAX_TOKENS", original)

	_, err := New("openai")
	if err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}

func TestSessionTTLFromEnv(t *testing.T) {
	original := os.Getenv("SESSION_TTL_SECONDS")
	os.Setenv("SESSION_TTL_SECONDS", "120")
	defer os.Setenv("SESSION_TTL_SECONDS", original)

	settings, err := New("openai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Sessions.TTL != 2*time.Minute {
		t.Errorf("ttl wrong: %v", settings.Sessions.TTL)
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown provider")
		}
	}()
	MustNew("unknown_provider")
}

func TestSupportedProviders(t *testing.T) {
	names := SupportedProviders()
	if len(names) != 3 {
		t.Errorf("expected 3 providers, got %v", names)
	}
	if !SupportsCaching("gemini") || SupportsCaching("openai") {
		t.Error("caching capability table wrong")
	}
}
