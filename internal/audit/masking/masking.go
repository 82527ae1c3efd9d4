// Package masking redacts credential-like values before they are written
// to the audit trail.
package masking

import "strings"

const maskToken = "****"

var sensitiveKeys = []string{"token", "secret", "password", "api_key", "authorization", "credential"}

// MaskSecret keeps everything up to the last underscore and the final four
// characters, so "gl_live_KEY_deadbeef" becomes "gl_live_KEY_****beef".
func MaskSecret(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	head, tail := "", value
	if i := strings.LastIndexByte(value, '_'); i >= 0 && i < len(value)-1 {
		head, tail = value[:i+1], value[i+1:]
	}
	if len(tail) <= 4 {
		return head + maskToken
	}
	return head + maskToken + tail[len(tail)-4:]
}

// MaskSensitive copies metadata and masks every string found beneath a key
// that names a credential. Nested maps are walked; other values pass through.
func MaskSensitive(input map[string]any) map[string]any {
	return walk(input, false)
}

func walk(input map[string]any, masked bool) map[string]any {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]any, len(input))
	for key, value := range input {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = redact(value, masked || isSensitiveKey(key))
	}
	return out
}

func redact(value any, masked bool) any {
	switch v := value.(type) {
	case string:
		if masked {
			return MaskSecret(v)
		}
		return v
	case map[string]any:
		return walk(v, masked)
	case []any:
		if !masked {
			return v
		}
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = redact(item, true)
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
