package analysis

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/talkscope/internal/llm"
)

// MinTranscriptLength is the minimum number of characters, after trimming
// surrounding whitespace, a transcript needs before it is sent to a model.
const MinTranscriptLength = 100

// Runner tries candidate models in priority order until one returns a
// usable JSON result. It makes a single pass: no candidate is retried and
// there is no backoff between candidates.
type Runner struct {
	gen        llm.Generator
	candidates []string
	strict     bool
	structured bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithStrictSchema makes a response missing required top-level keys count
// as a candidate failure.
func WithStrictSchema(on bool) Option {
	return func(r *Runner) { r.strict = on }
}

// WithStructuredOutput asks providers for schema-constrained JSON.
func WithStructuredOutput(on bool) Option {
	return func(r *Runner) { r.structured = on }
}

// NewRunner creates a Runner over candidates, most preferred first.
func NewRunner(gen llm.Generator, candidates []string, opts ...Option) *Runner {
	r := &Runner{
		gen:        gen,
		candidates: append([]string(nil), candidates...),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns a copy of the fallback sequence.
func (r *Runner) Candidates() []string {
	return append([]string(nil), r.candidates...)
}

// Request is one analysis job.
type Request struct {
	// ID correlates log lines; a new uuid is assigned when empty.
	ID         string
	Transcript string
	Level      DetailLevel
}

// Result is a successful analysis.
type Result struct {
	ID    string
	Model string
	Data  map[string]any
}

// CheckSufficient returns *InsufficientDataError when the trimmed
// transcript is shorter than MinTranscriptLength characters.
func CheckSufficient(text string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	if n < MinTranscriptLength {
		return &InsufficientDataError{Length: n, Min: MinTranscriptLength}
	}
	return nil
}

// Analyze validates req, builds the prompt for its level and runs the
// fallback sequence.
func (r *Runner) Analyze(ctx context.Context, req Request) (*Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if err := CheckSufficient(req.Transcript); err != nil {
		return nil, err
	}

	log := slog.With("analysis_id", req.ID, "level", string(req.Level))
	data, model, err := r.run(ctx, log, BuildPrompt(req.Transcript, req.Level), req.Level)
	if err != nil {
		return nil, err
	}
	return &Result{ID: req.ID, Model: model, Data: data}, nil
}

// Run sends prompt to each candidate in order and returns the first result
// that sanitizes cleanly. When every candidate fails the error is an
// *AllModelsFailedError carrying the last candidate's error.
func (r *Runner) Run(ctx context.Context, prompt string, level DetailLevel) (map[string]any, error) {
	data, _, err := r.run(ctx, slog.Default(), prompt, level)
	return data, err
}

func (r *Runner) run(ctx context.Context, log *slog.Logger, prompt string, level DetailLevel) (map[string]any, string, error) {
	var schema *llm.Schema
	if r.structured {
		schema = providerSchema(level)
	}

	failed := &AllModelsFailedError{Last: ErrNoCandidates}
	for i, model := range r.candidates {
		if err := ctx.Err(); err != nil {
			failed.Last = err
			break
		}

		log.Info("attempting analysis", "model", model, "attempt", i+1)
		start := time.Now()
		data, err := r.attempt(ctx, model, prompt, level, schema)
		elapsed := time.Since(start)
		if err == nil {
			log.Info("analysis succeeded", "model", model, "attempt", i+1, "duration", elapsed)
			return data, model, nil
		}

		log.Warn("model failed", "model", model, "attempt", i+1, "duration", elapsed, "error", err)
		failed.Attempts = append(failed.Attempts, Attempt{Model: model, Err: err, Duration: elapsed})
		failed.Model = model
		failed.Last = err
	}

	log.Error("all models failed", "attempts", len(failed.Attempts), "error", failed.Last)
	return nil, "", failed
}

func (r *Runner) attempt(ctx context.Context, model, prompt string, level DetailLevel, schema *llm.Schema) (map[string]any, error) {
	raw, err := r.gen.Generate(ctx, model, prompt, schema)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyResponse
	}

	data, err := Sanitize(raw)
	if err != nil {
		return nil, err
	}
	if r.strict {
		if err := CheckRequired(data, level); err != nil {
			return nil, err
		}
	}
	return data, nil
}
