package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// stripCodeFence removes a surrounding markdown code fence, which chat models
// add even when told not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// decodeModelJSON parses a model reply into out, tolerating code fences and
// leading prose before the first brace.
func decodeModelJSON(reply string, out any) error {
	s := stripCodeFence(reply)
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = s[i:]
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		return fmt.Errorf("model reply is not valid JSON: %w", err)
	}
	return nil
}
