package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hunterwarburton/fva/internal/core"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
// Secrets only come from the environment; everything else may also be set
// in an optional YAML file, with the environment taking precedence.
type Config struct {
	HTTPAddr  string          `yaml:"http_addr"`
	LogLevel  string          `yaml:"log_level"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Speech    SpeechConfig    `yaml:"speech"`
	Auth      AuthConfig      `yaml:"auth"`
	Library   LibraryConfig   `yaml:"library"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
}

// LLMConfig configures the chat-completions provider.
type LLMConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	// Models maps each selectable model to the provider's identifier.
	Models map[core.ModelID]string `yaml:"models"`
}

// EmbeddingConfig configures the OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	APIKey  string `yaml:"-"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Dim     int    `yaml:"dim"`
}

// IndexConfig addresses the Milvus collection (index) and partition (namespace).
type IndexConfig struct {
	Address   string `yaml:"address"`
	APIKey    string `yaml:"-"`
	Name      string `yaml:"name"`
	Namespace string `yaml:"namespace"`
	Metric    string `yaml:"metric"`
}

// SpeechConfig configures ElevenLabs text-to-speech.
type SpeechConfig struct {
	APIKey  string `yaml:"-"`
	VoiceID string `yaml:"voice_id"`
	Model   string `yaml:"model"`
}

// AuthConfig configures the Auth0 login gate. Auth is enabled when Domain is set.
type AuthConfig struct {
	Domain            string   `yaml:"domain"`
	ClientID          string   `yaml:"client_id"`
	ClientSecret      string   `yaml:"-"`
	CallbackURL       string   `yaml:"callback_url"`
	LogoutCallbackURL string   `yaml:"logout_callback_url"`
	SessionSecret     string   `yaml:"-"`
	AllowedEmails     []string `yaml:"allowed_emails"`
	AdminEmails       []string `yaml:"admin_emails"`
}

// Enabled reports whether the login gate is configured.
func (a AuthConfig) Enabled() bool { return a.Domain != "" }

// LibraryConfig points at the document catalog.
type LibraryConfig struct {
	// Source is a JSON file path, a SQLite file (*.db, *.sqlite) or a postgres:// DSN.
	Source string `yaml:"source"`
	Watch  bool   `yaml:"watch"`
}

// TelegramConfig configures the optional Telegram front-end.
type TelegramConfig struct {
	Token string `yaml:"-"`
	// Comma-separated Telegram user IDs. An empty allow list admits everyone.
	AdminUserIDs   string `yaml:"admin_user_ids"`
	AllowedUserIDs string `yaml:"allowed_user_ids"`
}

// RetrievalConfig holds pipeline defaults.
type RetrievalConfig struct {
	K     int `yaml:"k"`
	Width int `yaml:"width"`
	// Policy is "stuff" or "truncate"; MaxContextChars applies to truncate.
	Policy          string `yaml:"policy"`
	MaxContextChars int    `yaml:"max_context_chars"`
}

// TimeoutConfig bounds every external call.
type TimeoutConfig struct {
	Embedding  time.Duration `yaml:"embedding"`
	Retrieval  time.Duration `yaml:"retrieval"`
	Generation time.Duration `yaml:"generation"`
	Speech     time.Duration `yaml:"speech"`
	Search     time.Duration `yaml:"search"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HTTPAddr: ":8501",
		LogLevel: "info",
		LLM: LLMConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Models: map[core.ModelID]string{
				core.ModelGPT4:  "openai/gpt-4",
				core.ModelGPT35: "openai/gpt-3.5-turbo",
			},
		},
		Embedding: EmbeddingConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-ada-002",
			Dim:     1536,
		},
		Index: IndexConfig{
			Name:      "yrtsinim",
			Namespace: "ministry",
			Metric:    "COSINE",
		},
		Speech: SpeechConfig{
			VoiceID: "EXAVITQu4vr4xnAvoFDe", // Bella
			Model:   "eleven_monolingual_v1",
		},
		Library: LibraryConfig{Source: "Library.json"},
		Retrieval: RetrievalConfig{
			K:               4,
			Width:           110,
			Policy:          "stuff",
			MaxContextChars: 12000,
		},
		Timeouts: TimeoutConfig{
			Embedding:  20 * time.Second,
			Retrieval:  20 * time.Second,
			Generation: 120 * time.Second,
			Speech:     60 * time.Second,
			Search:     15 * time.Second,
		},
	}
}

// Load reads .env (if present), the optional YAML file at path and the
// environment, in increasing order of precedence. It does not validate.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getEnvWithDefault("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = getEnvWithDefault("LOG_LEVEL", c.LogLevel)

	c.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
	c.LLM.BaseURL = getEnvWithDefault("OPENROUTER_BASE_URL", c.LLM.BaseURL)
	if c.LLM.Models == nil {
		c.LLM.Models = Default().LLM.Models
	}
	for _, m := range core.SupportedModels() {
		key := "MODEL_" + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(string(m)))
		if v := os.Getenv(key); v != "" {
			c.LLM.Models[m] = v
		}
	}

	c.Embedding.APIKey = getEnvWithDefault("EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY"))
	c.Embedding.BaseURL = getEnvWithDefault("EMBEDDING_BASE_URL", c.Embedding.BaseURL)
	c.Embedding.Model = getEnvWithDefault("EMBEDDING_MODEL", c.Embedding.Model)
	c.Embedding.Dim = getEnvInt("EMBEDDING_DIM", c.Embedding.Dim)

	c.Index.Address = getEnvWithDefault("MILVUS_ADDRESS", c.Index.Address)
	c.Index.APIKey = os.Getenv("MILVUS_API_KEY")
	c.Index.Name = getEnvWithDefault("INDEX_NAME", c.Index.Name)
	c.Index.Namespace = getEnvWithDefault("INDEX_NAMESPACE", c.Index.Namespace)
	c.Index.Metric = getEnvWithDefault("INDEX_METRIC", c.Index.Metric)

	c.Speech.APIKey = os.Getenv("ELEVENLABS_API_KEY")
	c.Speech.VoiceID = getEnvWithDefault("ELEVENLABS_VOICE_ID", c.Speech.VoiceID)
	c.Speech.Model = getEnvWithDefault("ELEVENLABS_MODEL", c.Speech.Model)

	c.Auth.Domain = getEnvWithDefault("AUTH0_DOMAIN", c.Auth.Domain)
	c.Auth.ClientID = getEnvWithDefault("AUTH0_CLIENT_ID", c.Auth.ClientID)
	c.Auth.ClientSecret = os.Getenv("AUTH0_CLIENT_SECRET")
	c.Auth.CallbackURL = getEnvWithDefault("AUTH0_CALLBACK_URL", c.Auth.CallbackURL)
	c.Auth.LogoutCallbackURL = getEnvWithDefault("AUTH0_LOGOUT_CALLBACK_URL", c.Auth.LogoutCallbackURL)
	c.Auth.SessionSecret = os.Getenv("SESSION_SECRET")
	if v := os.Getenv("ALLOWED_EMAILS"); v != "" {
		c.Auth.AllowedEmails = splitList(v)
	}
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Auth.AdminEmails = splitList(v)
	}

	c.Library.Source = getEnvWithDefault("LIBRARY_SOURCE", c.Library.Source)
	c.Library.Watch = getEnvBool("LIBRARY_WATCH", c.Library.Watch)

	c.Telegram.Token = os.Getenv("TG_BOT_TOKEN")
	c.Telegram.AdminUserIDs = getEnvWithDefault("TG_ADMIN_USER_IDS", c.Telegram.AdminUserIDs)
	c.Telegram.AllowedUserIDs = getEnvWithDefault("TG_ALLOWED_USER_IDS", c.Telegram.AllowedUserIDs)

	c.Retrieval.K = getEnvInt("RETRIEVAL_K", c.Retrieval.K)
	c.Retrieval.Width = getEnvInt("WRAP_WIDTH", c.Retrieval.Width)
	c.Retrieval.Policy = getEnvWithDefault("CONTEXT_POLICY", c.Retrieval.Policy)
	c.Retrieval.MaxContextChars = getEnvInt("MAX_CONTEXT_CHARS", c.Retrieval.MaxContextChars)

	c.Timeouts.Embedding = getEnvDuration("EMBEDDING_TIMEOUT", c.Timeouts.Embedding)
	c.Timeouts.Retrieval = getEnvDuration("RETRIEVAL_TIMEOUT", c.Timeouts.Retrieval)
	c.Timeouts.Generation = getEnvDuration("GENERATION_TIMEOUT", c.Timeouts.Generation)
	c.Timeouts.Speech = getEnvDuration("SPEECH_TIMEOUT", c.Timeouts.Speech)
	c.Timeouts.Search = getEnvDuration("SEARCH_TIMEOUT", c.Timeouts.Search)
}

// Validate checks every setting the pipeline needs before serving requests.
// The returned error names all missing keys at once.
func (c *Config) Validate() error {
	var missing []string
	require := func(key, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}

	require("OPENROUTER_API_KEY", c.LLM.APIKey)
	require("EMBEDDING_API_KEY", c.Embedding.APIKey)
	require("MILVUS_ADDRESS", c.Index.Address)
	require("INDEX_NAME", c.Index.Name)
	require("INDEX_NAMESPACE", c.Index.Namespace)
	require("ELEVENLABS_API_KEY", c.Speech.APIKey)

	for _, m := range core.SupportedModels() {
		if c.LLM.Models[m] == "" {
			missing = append(missing, fmt.Sprintf("llm.models[%s]", m))
		}
	}

	anyAuth := c.Auth.Domain != "" || c.Auth.ClientID != "" || c.Auth.ClientSecret != "" || c.Auth.CallbackURL != ""
	if anyAuth {
		require("AUTH0_DOMAIN", c.Auth.Domain)
		require("AUTH0_CLIENT_ID", c.Auth.ClientID)
		require("AUTH0_CLIENT_SECRET", c.Auth.ClientSecret)
		require("AUTH0_CALLBACK_URL", c.Auth.CallbackURL)
		require("SESSION_SECRET", c.Auth.SessionSecret)
	}

	if len(missing) > 0 {
		return core.NewError("validate config", core.ErrConfiguration,
			fmt.Errorf("missing required settings: %s", strings.Join(missing, ", ")))
	}

	if c.Embedding.Dim <= 0 {
		return core.NewError("validate config", core.ErrConfiguration, fmt.Errorf("embedding dim must be positive, got %d", c.Embedding.Dim))
	}
	if p := c.Retrieval.Policy; p != "stuff" && p != "truncate" {
		return core.NewError("validate config", core.ErrConfiguration, fmt.Errorf("context policy must be stuff or truncate, got %q", p))
	}
	if c.Retrieval.K <= 0 {
		return core.NewError("validate config", core.ErrConfiguration, fmt.Errorf("retrieval k must be positive, got %d", c.Retrieval.K))
	}
	return nil
}

// ValidateTelegram checks the extra settings required by the Telegram front-end.
func (c *Config) ValidateTelegram() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.Token == "" {
		return core.NewError("validate config", core.ErrConfiguration, errors.New("missing required settings: TG_BOT_TOKEN"))
	}
	return nil
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
