package analysis

import (
	"encoding/json"
	"errors"
	"strings"
)

const excerptLen = 80

// fenceReplacer removes markdown code fences. "```json" is listed first so
// it wins over the bare fence at the same position.
var fenceReplacer = strings.NewReplacer("```json", "", "```", "")

// Clean strips every markdown code-fence marker and the surrounding
// whitespace. Clean(Clean(s)) == Clean(s).
func Clean(raw string) string {
	return strings.TrimSpace(fenceReplacer.Replace(raw))
}

// Sanitize cleans raw model output and decodes it as a JSON object.
func Sanitize(raw string) (map[string]any, error) {
	cleaned := Clean(raw)

	var result map[string]any
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, &ParseError{Excerpt: excerpt(cleaned), Err: err}
	}
	if result == nil {
		// "null" decodes without error into a nil map.
		return nil, &ParseError{Excerpt: excerpt(cleaned), Err: errNotObject}
	}
	return result, nil
}

var errNotObject = errors.New("response is not a JSON object")

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "..."
}
