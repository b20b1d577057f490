package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeJSON unmarshals a model answer into v, tolerating a surrounding
// code fence and leading prose before the first brace.
func decodeJSON(text string, v any) error {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		if nl := strings.IndexByte(t, '\n'); nl >= 0 {
			t = t[nl+1:]
		}
		if end := strings.LastIndex(t, "```"); end >= 0 {
			t = t[:end]
		}
		t = strings.TrimSpace(t)
	}
	if !strings.HasPrefix(t, "{") && !strings.HasPrefix(t, "[") {
		start := strings.IndexAny(t, "{[")
		if start < 0 {
			return fmt.Errorf("pipeline: no JSON in model output")
		}
		t = t[start:]
	}
	return json.Unmarshal([]byte(t), v)
}
