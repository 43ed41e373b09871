// Package llm provides the model providers the analysis runner calls: a
// Gemini client speaking the OpenAI-compatible chat completions API and a
// client for a local Ollama instance.
package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kalambet/talkscope/internal/config"
)

// Generator sends a single prompt to a model and returns the raw text reply.
type Generator interface {
	// Generate invokes model with prompt. When schema is non-nil, the
	// provider is asked for JSON output conforming to it.
	Generate(ctx context.Context, model, prompt string, schema *Schema) (string, error)
}

// ModelLister is implemented by providers that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Provider is what New returns: a generator that can also list models.
type Provider interface {
	Generator
	ModelLister
}

// Schema describes the JSON document a structured-output request expects.
type Schema struct {
	Name       string
	Definition map[string]any
}

// New builds the provider selected by cfg.Provider.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout), nil
	case config.ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// CheckModels reports, one line per candidate, whether the provider lists
// it. It returns the candidates that were not found. Listing failures are
// returned as errors; a missing candidate is not an error because the
// fallback runner skips it at call time.
func CheckModels(ctx context.Context, l ModelLister, candidates []string, w io.Writer) ([]string, error) {
	available, err := l.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	var missing []string
	for _, c := range candidates {
		if hasModel(available, c) {
			fmt.Fprintf(w, "model %s: available\n", c)
			continue
		}
		fmt.Fprintf(w, "model %s: not listed\n", c)
		missing = append(missing, c)
	}
	return missing, nil
}

func hasModel(available []string, name string) bool {
	for _, m := range available {
		// Gemini lists "models/gemini-2.5-pro"; Ollama lists "llama3.1:latest".
		m = strings.TrimPrefix(m, "models/")
		if m == name || strings.HasPrefix(m, name+":") {
			return true
		}
	}
	return false
}
