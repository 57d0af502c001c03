package chat

import (
	"encoding/json"
	"strings"

	"ollamaui/providers"
)

// ParseHistory decodes the client-held history. Empty or malformed input yields an
// empty history. Entries with a role other than user or assistant are dropped.
func ParseHistory(raw string) []providers.Message {
	if strings.TrimSpace(raw) == "" {
		return []providers.Message{}
	}

	var entries []struct {
		Role    string      `json:"role"`
		Content interface{} `json:"content"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return []providers.Message{}
	}

	history := make([]providers.Message, 0, len(entries))
	for _, entry := range entries {
		if entry.Role != providers.RoleUser && entry.Role != providers.RoleAssistant {
			continue
		}
		history = append(history, providers.Message{
			Role:    entry.Role,
			Content: contentString(entry.Content),
		})
	}
	return history
}

// contentString accepts non-string content the way a loosely typed client sends it
func contentString(v interface{}) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		data, err := json.Marshal(c)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// WithPrompt returns history with the prompt as its final user turn. If the last
// element already is that turn (ignoring surrounding whitespace) the history is
// returned unchanged.
func WithPrompt(history []providers.Message, prompt string) []providers.Message {
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == providers.RoleUser && strings.TrimSpace(last.Content) == strings.TrimSpace(prompt) {
			return history
		}
	}

	out := make([]providers.Message, 0, len(history)+1)
	out = append(out, history...)
	return append(out, providers.Message{Role: providers.RoleUser, Content: prompt})
}
