// Package transcript turns uploaded chat exports into text and performs the
// cheap structural checks done before any model is involved.
package transcript

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// MinMessageLines is the number of non-blank lines a transcript needs to be
// considered a conversation.
const MinMessageLines = 10

var (
	pdfMagic = []byte("%PDF-")
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// EncodingError reports an upload that could not be decoded to UTF-8 text.
type EncodingError struct {
	// Offset is the first invalid byte, or -1 when Err explains the failure.
	Offset int
	Err    error
}

func (e *EncodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decoding transcript: %v", e.Err)
	}
	return fmt.Sprintf("transcript is not valid UTF-8 (byte offset %d)", e.Offset)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Decode returns the text content of an upload. PDF exports are converted
// to plain text; everything else must be UTF-8. A leading byte order mark
// is dropped.
func Decode(data []byte) (string, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return extractPDF(data)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", &EncodingError{Offset: invalidOffset(data)}
	}
	return string(data), nil
}

func invalidOffset(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", &EncodingError{Offset: -1, Err: fmt.Errorf("reading pdf: %v", r)}
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &EncodingError{Offset: -1, Err: fmt.Errorf("opening pdf: %w", err)}
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", &EncodingError{Offset: -1, Err: fmt.Errorf("extracting pdf text: %w", err)}
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", &EncodingError{Offset: -1, Err: fmt.Errorf("extracting pdf text: %w", err)}
	}
	if !utf8.Valid(buf.Bytes()) {
		return "", &EncodingError{Offset: invalidOffset(buf.Bytes())}
	}
	return buf.String(), nil
}

// CountMessages returns the number of non-blank lines after trimming the
// whole text.
func CountMessages(text string) int {
	n := 0
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// Validation is the outcome of a pre-upload check.
type Validation struct {
	Valid        bool   `json:"valid"`
	MessageCount int    `json:"message_count,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Validate checks that text looks like a conversation worth analyzing.
func Validate(text string) Validation {
	n := CountMessages(text)
	if n < MinMessageLines {
		return Validation{
			Valid: false,
			Error: fmt.Sprintf("conversation has too few lines: need at least %d, got %d", MinMessageLines, n),
		}
	}
	return Validation{Valid: true, MessageCount: n}
}

// ValidateBytes decodes data and validates the result. Decode failures are
// reported in the Validation rather than as an error.
func ValidateBytes(data []byte) Validation {
	text, err := Decode(data)
	if err != nil {
		return Validation{Valid: false, Error: "check the file encoding; it must be UTF-8: " + err.Error()}
	}
	return Validate(text)
}
