package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/talkscope/internal/transcript"
)

// Stable error codes returned to clients.
const (
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeEncodingError    = "ENCODING_ERROR"
	CodeAIAnalysisFailed = "AI_ANALYSIS_FAILED"
	CodeUnknown          = "UNKNOWN_ERROR"
)

var (
	// ErrEmptyResponse marks a candidate that answered with no text.
	ErrEmptyResponse = errors.New("empty response from AI")
	// ErrNoCandidates is the last error when the candidate list is empty.
	ErrNoCandidates = errors.New("no candidate models configured")
)

// InsufficientDataError rejects transcripts too short to analyze.
type InsufficientDataError struct {
	Length int
	Min    int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("conversation is too short: %d characters, need at least %d", e.Length, e.Min)
}

// ParseError means a model response was not a JSON object after cleaning.
// It never leaves the runner; it only fails the candidate that produced it.
type ParseError struct {
	Excerpt string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model response: %v (response starts %q)", e.Err, e.Excerpt)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means a parsed response lacks required top-level keys.
type SchemaError struct {
	Level   DetailLevel
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s result missing keys: %s", e.Level, strings.Join(e.Missing, ", "))
}

// Attempt records one failed candidate.
type Attempt struct {
	Model    string
	Err      error
	Duration time.Duration
}

// AllModelsFailedError is returned when no candidate produced a usable
// result. Last is the error of the final candidate tried.
type AllModelsFailedError struct {
	Model    string
	Last     error
	Attempts []Attempt
}

func (e *AllModelsFailedError) Error() string {
	return fmt.Sprintf("all AI model analyses failed, last error: %v", e.Last)
}

func (e *AllModelsFailedError) Unwrap() error { return e.Last }

// Code classifies err into one of the stable client-facing codes.
func Code(err error) string {
	var (
		insufficient *InsufficientDataError
		encoding     *transcript.EncodingError
		allFailed    *AllModelsFailedError
	)
	switch {
	case errors.As(err, &insufficient):
		return CodeInsufficientData
	case errors.As(err, &encoding):
		return CodeEncodingError
	case errors.As(err, &allFailed):
		return CodeAIAnalysisFailed
	default:
		return CodeUnknown
	}
}
