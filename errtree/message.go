package errtree

import (
	"fmt"
	"strings"
)

// NoMessage is returned when no known result shape matched.
const NoMessage = "Could not retrieve error message"

// EscapeTemplate escapes template delimiters so downstream consumers do not
// re-render alert text as a template expression.
func EscapeTemplate(s string) string {
	s = strings.ReplaceAll(s, "{{", `\{\{`)
	return strings.ReplaceAll(s, "}}", `\}\}`)
}

// Message extracts the human-readable error from a result payload. Result
// shapes differ per job type, so each known shape is tried in a fixed
// precedence order and the first match wins.
func Message(result map[string]any) string {
	// Custom error messages published by workflow outputs.
	if msg, ok := customError(result); ok {
		return msg
	}

	// Template-engine syntax errors.
	if errs, ok := result["errors"].([]any); ok && len(errs) > 0 {
		if first, ok := errs[0].(map[string]any); ok {
			if msg, ok := first["message"].(string); ok {
				return EscapeTemplate(msg)
			}
		}
	}

	// Platform-level errors, such as timeouts.
	if v, ok := result["error"]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}

	// Remote-plan payloads nest the failure several levels down; the payload
	// may also be a bare string or carry stderr directly.
	if inner := result["result"]; truthy(inner) {
		switch v := inner.(type) {
		case map[string]any:
			if msg, ok := resultSetError(v); ok {
				return msg
			}
			if s, ok := v["stderr"].(string); ok {
				return s
			}
		case string:
			return v
		}
	}

	// Script runners report plain stderr.
	if s, ok := result["stderr"].(string); ok {
		return s
	}

	return NoMessage
}

// resultSetError digs out result.details.result_set[0].value._error.msg.
func resultSetError(result map[string]any) (string, bool) {
	details, ok := result["details"].(map[string]any)
	if !ok {
		return "", false
	}
	set, ok := details["result_set"].([]any)
	if !ok || len(set) == 0 {
		return "", false
	}
	first, ok := set[0].(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := first["value"].(map[string]any)
	if !ok {
		return "", false
	}
	errObj, ok := value["_error"].(map[string]any)
	if !ok {
		return "", false
	}
	msg, ok := errObj["msg"].(string)
	return msg, ok
}

// truthy mirrors the platform convention that an empty, nil or literal
// "None" result means "no result recorded".
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != "" && t != "None"
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	}
	return true
}
