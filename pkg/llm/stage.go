package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
)

// CheckTruncated reports a response that does not end with a closing brace
// or bracket. Markdown fences and think tags around the JSON are tolerated.
func CheckTruncated(response string) error {
	cleaned := strings.TrimSpace(thinkTagPattern.ReplaceAllString(response, ""))
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "```"))
	if cleaned == "" {
		return NewError(ErrorTypeMalformed, "empty response", true, nil)
	}
	if !strings.ContainsAny(cleaned, "{[") {
		return NewError(ErrorTypeMalformed, "response contains no JSON", true, nil)
	}
	switch cleaned[len(cleaned)-1] {
	case '}', ']':
		return nil
	}
	tail := cleaned
	if len(tail) > 40 {
		tail = "..." + tail[len(tail)-40:]
	}
	return NewError(ErrorTypeTruncated, fmt.Sprintf("response ends with %q", tail), true, nil)
}

// StageResponse is a decoded stage output together with its raw keys.
type StageResponse[T any] struct {
	Value T
	Raw   map[string]json.RawMessage
	JSON  string
}

// Tree decodes the response generically, for the language check.
func (r *StageResponse[T]) Tree() any {
	var v any
	if err := json.Unmarshal([]byte(r.JSON), &v); err != nil {
		return nil
	}
	return v
}

// ParseStageResponse validates and decodes a stage's JSON output. The
// checks run in order: truncation, JSON extraction, required keys, then
// decoding. Every failure is a retryable *Error with a distinct type.
func ParseStageResponse[T any](response string, requiredKeys ...string) (*StageResponse[T], error) {
	if err := CheckTruncated(response); err != nil {
		return nil, err
	}

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return nil, NewError(ErrorTypeMalformed, "no valid JSON object", true, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, NewError(ErrorTypeMalformed, "response is not a JSON object", true, err)
	}

	var missing []string
	for _, key := range requiredKeys {
		v, ok := raw[key]
		if !ok || string(v) == "null" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, NewError(ErrorTypeSchema,
			fmt.Sprintf("missing required keys: %s", strings.Join(missing, ", ")), true, nil)
	}

	out := &StageResponse[T]{Raw: raw, JSON: jsonStr}
	if err := json.Unmarshal([]byte(jsonStr), &out.Value); err != nil {
		return nil, NewError(ErrorTypeSchema, "unexpected field types", true, err)
	}
	return out, nil
}

// CheckLanguage rejects output whose text is not Brazilian Portuguese.
// Keys listed in skipKeys (identifiers, enum values) are not inspected.
func CheckLanguage(v any, skipKeys ...string) error {
	violations := locale.FindEnglish(v, skipKeys...)
	if len(violations) == 0 {
		return nil
	}
	shown := violations
	if len(shown) > 3 {
		shown = shown[:3]
	}
	parts := make([]string, len(shown))
	for i, viol := range shown {
		parts[i] = viol.String()
	}
	return NewError(ErrorTypeLanguage,
		fmt.Sprintf("%d English fragments: %s", len(violations), strings.Join(parts, "; ")), true, nil)
}
