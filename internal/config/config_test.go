package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
)

var requiredEnv = map[string]string{
	"OPENROUTER_API_KEY": "or-key",
	"EMBEDDING_API_KEY":  "emb-key",
	"MILVUS_ADDRESS":     "localhost:19530",
	"ELEVENLABS_API_KEY": "xi-key",
}

func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

func TestLoadDefaultsAndValidate(t *testing.T) {
	setEnv(t, requiredEnv)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Index.Name != "yrtsinim" || cfg.Index.Namespace != "ministry" {
		t.Fatalf("unexpected index defaults: %+v", cfg.Index)
	}
	if cfg.Retrieval.K != 4 || cfg.Retrieval.Width != 110 {
		t.Fatalf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if cfg.Auth.Enabled() {
		t.Fatalf("auth should be disabled without AUTH0_DOMAIN")
	}
}

func TestValidateNamesEveryMissingKey(t *testing.T) {
	for k := range requiredEnv {
		t.Setenv(k, "")
	}
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.Validate()
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	for k := range requiredEnv {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("error %q does not name %s", err, k)
		}
	}
}

func TestEmbeddingKeyFallsBackToOpenAIKey(t *testing.T) {
	setEnv(t, requiredEnv)
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embedding.APIKey != "sk-openai" {
		t.Fatalf("expected fallback key, got %q", cfg.Embedding.APIKey)
	}
}

func TestPartialAuthConfigIsRejected(t *testing.T) {
	setEnv(t, requiredEnv)
	t.Setenv("AUTH0_DOMAIN", "tenant.auth0.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	err = cfg.Validate()
	if !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "AUTH0_CLIENT_ID") || !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Fatalf("error does not name auth keys: %v", err)
	}
}

func TestYAMLFileIsOverriddenByEnv(t *testing.T) {
	setEnv(t, requiredEnv)
	path := filepath.Join(t.TempDir(), "fva.yaml")
	content := `
http_addr: ":9000"
index:
  name: forestry
  namespace: fsp
llm:
  models:
    gpt-4: openai/gpt-4-0613
retrieval:
  k: 6
timeouts:
  generation: 45s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INDEX_NAMESPACE", "ministry-2023")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9000" || cfg.Index.Name != "forestry" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.Index.Namespace != "ministry-2023" {
		t.Fatalf("env should override yaml, got %q", cfg.Index.Namespace)
	}
	if cfg.LLM.Models[core.ModelGPT4] != "openai/gpt-4-0613" {
		t.Fatalf("model mapping not applied: %v", cfg.LLM.Models)
	}
	if cfg.LLM.Models[core.ModelGPT35] != "openai/gpt-3.5-turbo" {
		t.Fatalf("default mapping lost: %v", cfg.LLM.Models)
	}
	if cfg.Retrieval.K != 6 || cfg.Timeouts.Generation != 45*time.Second {
		t.Fatalf("unexpected values: k=%d gen=%v", cfg.Retrieval.K, cfg.Timeouts.Generation)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestValidateContextPolicy(t *testing.T) {
	setEnv(t, requiredEnv)
	t.Setenv("CONTEXT_POLICY", "refine")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, core.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown policy, got %v", err)
	}

	t.Setenv("CONTEXT_POLICY", "truncate")
	t.Setenv("MAX_CONTEXT_CHARS", "2000")
	cfg, _ = Load("")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Retrieval.MaxContextChars != 2000 {
		t.Fatalf("max context chars = %d", cfg.Retrieval.MaxContextChars)
	}
}
