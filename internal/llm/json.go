package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// DecodeJSON unmarshals model output into v after stripping a Markdown code
// fence, which models frequently wrap JSON responses in. This is the only
// place raw model-text cleanup lives; callers never see fenced text.
func DecodeJSON(raw string, v any) error {
	return json.Unmarshal([]byte(StripCodeFence(raw)), v)
}

// StripCodeFence removes a surrounding ```json fence, if present.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}
