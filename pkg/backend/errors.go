package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

func (e *APIError) StatusCode() int {
	return e.Status
}

// ExtractMessage pulls the human readable message out of a backend error
// body, falling back to the status text.
func ExtractMessage(body []byte, status int) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := messageFrom(payload["message"]); msg != "" {
			return msg
		}
		if msg := messageFrom(payload["error"]); msg != "" {
			return msg
		}
		if list, ok := payload["errors"].([]any); ok && len(list) > 0 {
			if msg := messageFrom(list[0]); msg != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("backend status %d", status)
}

func messageFrom(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s := messageFrom(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		return messageFrom(v["message"])
	}
	return ""
}
