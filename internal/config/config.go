package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// DefaultModels is the fallback sequence, most capable first.
var DefaultModels = []string{
	"gemini-3-pro",
	"gemini-2.5-pro",
	"gemini-2.5-flash",
	"gemini-1.5-pro",
	"gemini-1.5-flash",
	"gemini-pro",
}

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	MaxUploadBytes int
	MaxConnections int
	CORSOrigins    []string
}

// LLMConfig selects the model provider. An empty BaseURL means the
// provider's default endpoint.
type LLMConfig struct {
	Provider string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

type AnalysisConfig struct {
	Models           []string
	StrictSchema     bool
	StructuredOutput bool
}

type LogConfig struct {
	Level string
}

// Addr returns the host:port the HTTP server binds to.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// APIConfigured reports whether a provider credential is present. It says
// nothing about whether the credential is valid.
func (c Config) APIConfigured() bool {
	return c.LLM.APIKey != ""
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8000,
			MaxUploadBytes: 10 << 20,
			CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
		},
		LLM: LLMConfig{
			Provider: ProviderGemini,
		},
		Analysis: AnalysisConfig{
			Models: append([]string(nil), DefaultModels...),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file, environment variables and
// the platform secret store, in increasing order of precedence for
// everything except the API key, which is looked up in the secret store
// only when neither the file nor the environment provides one.
//
// The config file lives at $XDG_CONFIG_HOME/talkscope/config.yaml. JSON
// content is accepted as well.
//
// Environment variables (TALKSCOPE_*) override file values. GEMINI_API_KEY
// is honoured when TALKSCOPE_API_KEY is unset.
//
// A missing API key is not an error: the server starts and reports
// api_configured=false, and model calls fail later.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if cfg.LLM.APIKey == "" {
		if key, err := kc.Get("talkscope", "api_key"); err == nil && key != "" {
			cfg.LLM.APIKey = key
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOllama:
	default:
		return fmt.Errorf("invalid llm.provider %q: want %q or %q", c.LLM.Provider, ProviderGemini, ProviderOllama)
	}
	if len(c.Analysis.Models) == 0 {
		return fmt.Errorf("analysis.models must list at least one model")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid server.max_upload_bytes %d", c.Server.MaxUploadBytes)
	}
	return nil
}

// keychainReader reads secrets from the platform store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
