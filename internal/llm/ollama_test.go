package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/talkscope/internal/config"
)

// tagsJSON builds a /api/tags response with the given model names.
func tagsJSON(names ...string) []byte {
	type entry struct {
		Name string `json:"name"`
	}
	type resp struct {
		Models []entry `json:"models"`
	}
	r := resp{}
	for _, n := range names {
		r.Models = append(r.Models, entry{Name: n})
	}
	b, _ := json.Marshal(r)
	return b
}

func TestOllamaGenerate(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("path = %q, want /api/chat", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"message":{"role":"assistant","content":"{\"summary\":\"hi\"}"},"done":true}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0)
	out, err := c.Generate(context.Background(), "llama3.1", "prompt text", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"summary":"hi"}` {
		t.Errorf("Generate() = %q", out)
	}
	if got.Model != "llama3.1" || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "prompt text" || got.Messages[0].Role != "user" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.Format != nil {
		t.Errorf("format = %v, want nil without schema", got.Format)
	}
}

func TestOllamaGenerate_SchemaSentAsFormat(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"message":{"role":"assistant","content":"{}"}}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0)
	schema := &Schema{Name: "x", Definition: map[string]any{"type": "object"}}
	if _, err := c.Generate(context.Background(), "m", "p", schema); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Contains(raw, []byte(`"format":{"type":"object"}`)) {
		t.Errorf("body = %s, want format schema", raw)
	}
}

func TestOllamaGenerate_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0)
	_, err := c.Generate(context.Background(), "missing-model", "p", nil)
	if err == nil || !strings.Contains(err.Error(), "unexpected status 404") {
		t.Errorf("err = %v, want unexpected status 404", err)
	}
}

func TestOllamaGenerate_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewOllamaClient(srv.URL, 0)
	_, err := c.Generate(ctx, "m", "p", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(tagsJSON("llama3.1:latest", "qwen2.5:7b"))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, 0)
	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 2 || models[0] != "llama3.1:latest" || models[1] != "qwen2.5:7b" {
		t.Errorf("models = %v", models)
	}
}

func TestNewOllamaClient_DefaultBaseURL(t *testing.T) {
	c := NewOllamaClient("", 0)
	if c.baseURL != DefaultOllamaBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultOllamaBaseURL)
	}
}

func TestNew(t *testing.T) {
	p, err := New(config.LLMConfig{Provider: config.ProviderGemini, APIKey: "k"})
	if err != nil {
		t.Fatalf("New(gemini): %v", err)
	}
	if _, ok := p.(*OpenAIClient); !ok {
		t.Errorf("New(gemini) = %T, want *OpenAIClient", p)
	}

	p, err = New(config.LLMConfig{Provider: config.ProviderOllama})
	if err != nil {
		t.Fatalf("New(ollama): %v", err)
	}
	if _, ok := p.(*OllamaClient); !ok {
		t.Errorf("New(ollama) = %T, want *OllamaClient", p)
	}

	if _, err := New(config.LLMConfig{Provider: "bard"}); err == nil {
		t.Error("New(bard) = nil error, want error")
	}
}

type stubLister struct {
	models []string
	err    error
}

func (s stubLister) ListModels(context.Context) ([]string, error) {
	return s.models, s.err
}

func TestCheckModels(t *testing.T) {
	var buf bytes.Buffer
	l := stubLister{models: []string{"models/gemini-2.5-pro", "llama3.1:latest"}}

	missing, err := CheckModels(context.Background(), l, []string{"gemini-2.5-pro", "llama3.1", "gemini-3-pro"}, &buf)
	if err != nil {
		t.Fatalf("CheckModels: %v", err)
	}
	if len(missing) != 1 || missing[0] != "gemini-3-pro" {
		t.Errorf("missing = %v, want [gemini-3-pro]", missing)
	}
	out := buf.String()
	if !strings.Contains(out, "model gemini-2.5-pro: available") {
		t.Errorf("output missing available line:\n%s", out)
	}
	if !strings.Contains(out, "model gemini-3-pro: not listed") {
		t.Errorf("output missing not listed line:\n%s", out)
	}
}

func TestCheckModels_ListError(t *testing.T) {
	_, err := CheckModels(context.Background(), stubLister{err: errors.New("offline")}, []string{"m"}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Errorf("err = %v, want wrapped offline error", err)
	}
}
