package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedReply = errors.New("relay: malformed webhook reply")

// replyFields are checked in order; the first non-empty one wins.
var replyFields = []string{"response", "output", "message", "text"}

// Normalize extracts the reply text from a webhook body. The body must be
// JSON. Objects are searched for replyFields, a bare string is the reply
// itself, arrays use the reply field of their first item, anything else is
// returned as raw JSON.
func Normalize(body []byte) (string, error) {
	raw := bytes.TrimSpace(body)
	if len(raw) == 0 {
		return "", fmt.Errorf("%w: empty body", ErrMalformedReply)
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	text := fromValue(v, raw)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	return text, nil
}

func fromValue(v any, raw []byte) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case map[string]any:
		for _, k := range replyFields {
			if s := fieldText(t[k]); s != "" {
				return s
			}
		}
		return string(raw)
	case []any:
		// n8n "respond with all incoming items": the first item's reply
		// field, otherwise the payload as sent
		if len(t) > 0 {
			if item, ok := t[0].(map[string]any); ok {
				for _, k := range replyFields {
					if s := fieldText(item[k]); s != "" {
						return s
					}
				}
			}
		}
		return string(raw)
	default:
		return string(raw)
	}
}

func fieldText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		if strings.TrimSpace(t) == "" {
			return ""
		}
		return t
	case bool:
		if !t {
			return ""
		}
	case float64:
		if t == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
