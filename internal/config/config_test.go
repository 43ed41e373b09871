package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every variable Load consults so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
	t.Setenv("GEMINI_API_KEY", "")
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.MaxUploadBytes != 10<<20 {
		t.Errorf("Server.MaxUploadBytes = %d, want %d", cfg.Server.MaxUploadBytes, 10<<20)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, ","); got != "http://localhost:5173,http://localhost:3000" {
		t.Errorf("Server.CORSOrigins = %q", got)
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, ProviderGemini)
	}
	if cfg.LLM.BaseURL != "" {
		t.Errorf("LLM.BaseURL = %q, want empty", cfg.LLM.BaseURL)
	}
	if len(cfg.Analysis.Models) != 6 || cfg.Analysis.Models[0] != "gemini-3-pro" || cfg.Analysis.Models[5] != "gemini-pro" {
		t.Errorf("Analysis.Models = %v", cfg.Analysis.Models)
	}
	if cfg.Analysis.StrictSchema {
		t.Error("Analysis.StrictSchema = true, want false")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestMissingAPIKeyTolerated(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("missing API key must not fail loading: %v", err)
	}
	if cfg.APIConfigured() {
		t.Error("APIConfigured() = true, want false")
	}
}

func TestGeminiAPIKeyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	path := writeTempConfig(t, "")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{value: "keychain-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "gemini-key" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "gemini-key")
	}
	if !cfg.APIConfigured() {
		t.Error("APIConfigured() = false, want true")
	}
}

func TestTalkscopeAPIKeyTakesPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("TALKSCOPE_API_KEY", "talkscope-key")
	path := writeTempConfig(t, "")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "talkscope-key" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "talkscope-key")
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "# no api key in file\n")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{value: "keychain-secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "keychain-secret" {
		t.Errorf("LLM.APIKey = %q, want %q", cfg.LLM.APIKey, "keychain-secret")
	}
}

func TestYAMLParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
server.port: 9000
server.host: 0.0.0.0
server.max_connections: 64
server.cors_origins:
  - https://app.example.com
  - https://admin.example.com
llm.provider: ollama
llm.base_url: http://localhost:11434
llm.timeout: 90s
analysis.models: llama3.1, qwen2.5
analysis.strict_schema: true
log.level: debug
`)

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q", cfg.Server.Host)
	}
	if cfg.Server.MaxConnections != 64 {
		t.Errorf("Server.MaxConnections = %d, want 64", cfg.Server.MaxConnections)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, ","); got != "https://app.example.com,https://admin.example.com" {
		t.Errorf("Server.CORSOrigins = %q", got)
	}
	if cfg.LLM.Provider != ProviderOllama {
		t.Errorf("LLM.Provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 90*time.Second {
		t.Errorf("LLM.Timeout = %v, want 90s", cfg.LLM.Timeout)
	}
	if got := strings.Join(cfg.Analysis.Models, ","); got != "llama3.1,qwen2.5" {
		t.Errorf("Analysis.Models = %q", got)
	}
	if !cfg.Analysis.StrictSchema {
		t.Error("Analysis.StrictSchema = false, want true")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestJSONFileAccepted(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server.port": 8123, "analysis.models": "gemini-2.5-flash"}`)

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8123 {
		t.Errorf("Server.Port = %d, want 8123", cfg.Server.Port)
	}
	if len(cfg.Analysis.Models) != 1 || cfg.Analysis.Models[0] != "gemini-2.5-flash" {
		t.Errorf("Analysis.Models = %v", cfg.Analysis.Models)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "server.port: 9000\n")
	t.Setenv("TALKSCOPE_SERVER_PORT", "9100")
	t.Setenv("TALKSCOPE_ANALYSIS_MODELS", "a, b ,c")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if got := strings.Join(cfg.Analysis.Models, ","); got != "a,b,c" {
		t.Errorf("Analysis.Models = %q, want %q", got, "a,b,c")
	}
}

func TestInvalidEnvIgnored(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "")
	t.Setenv("TALKSCOPE_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
}

func TestInvalidProvider(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "")
	t.Setenv("TALKSCOPE_LLM_PROVIDER", "bard")

	_, err := loadWith(newFileBackend(path), mockKeychain{})
	if err == nil {
		t.Fatal("expected error for unknown provider, got nil")
	}
	if !strings.Contains(err.Error(), "llm.provider") {
		t.Errorf("error = %q, want it to mention llm.provider", err)
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talkscope", "config.yaml")
	b := newFileBackend(path)

	if err := setKeyWith(b, "server.port", "9001"); err != nil {
		t.Fatalf("setKeyWith(server.port): %v", err)
	}
	if err := setKeyWith(b, "analysis.strict_schema", "true"); err != nil {
		t.Fatalf("setKeyWith(analysis.strict_schema): %v", err)
	}

	reloaded := newFileBackend(path)
	port, ok, err := reloaded.GetInt("server.port")
	if err != nil || !ok || port != 9001 {
		t.Errorf("GetInt(server.port) = %d, %v, %v; want 9001, true, nil", port, ok, err)
	}
	strict, ok, err := reloaded.GetString("analysis.strict_schema")
	if err != nil || !ok || strict != "true" {
		t.Errorf("GetString(analysis.strict_schema) = %q, %v, %v", strict, ok, err)
	}
}

func TestSetKeyRejects(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.yaml"))

	tests := []struct {
		key, value string
	}{
		{"llm.api_key", "secret"},
		{"nope.key", "x"},
		{"server.port", "abc"},
		{"analysis.strict_schema", "maybe"},
		{"llm.timeout", "soon"},
	}
	for _, tt := range tests {
		if err := setKeyWith(b, tt.key, tt.value); err == nil {
			t.Errorf("setKeyWith(%q, %q) = nil, want error", tt.key, tt.value)
		}
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.LLM.APIKey = "super-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "llm.api_key" {
			t.Fatal("ShowAll exposed llm.api_key")
		}
		if strings.Contains(info.Value, "super-secret") {
			t.Fatalf("ShowAll leaked secret in %s", info.Key)
		}
	}

	for _, k := range ValidKeys() {
		if k == "llm.api_key" {
			t.Fatal("ValidKeys includes secret key")
		}
	}
}
