package forumapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the forum API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("forum api: %d: %s", e.Status, e.Message)
}

// UserMessage is the server-provided text, fit for a notification.
func (e *APIError) UserMessage() string { return e.Message }

// parseAPIError extracts the server's message from message, error or data,
// in that order, and falls back to the status text.
func parseAPIError(status int, body []byte) *APIError {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"message", "error", "data"} {
			var msg string
			if raw, ok := fields[key]; ok && json.Unmarshal(raw, &msg) == nil && strings.TrimSpace(msg) != "" {
				return &APIError{Status: status, Message: strings.TrimSpace(msg)}
			}
		}
	}
	msg := http.StatusText(status)
	if msg == "" {
		msg = "unexpected response"
	}
	return &APIError{Status: status, Message: msg}
}
