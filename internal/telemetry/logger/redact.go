package logger

import (
	"log/slog"
	"strings"
)

// redactedValue replaces the value of a sensitive attribute.
const redactedValue = "***REDACTED***"

// sensitiveKeyFragments mark attribute keys whose values are never logged.
// The cluster identity secret travels as "identity_value" in config dumps
// and as the Rm-Server-Identity header in RPC debugging.
var sensitiveKeyFragments = []string{
	"identity",
	"secret",
	"password",
	"token",
	"credential",
	"authorization",
}

// IsSensitiveKey reports whether key names a secret.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(key, frag) {
			return true
		}
	}
	return false
}

// redactSensitive masks non-empty scalar values under sensitive keys and
// walks groups.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindGroup:
		group := a.Value.Group()
		out := make([]slog.Attr, len(group))
		for i, attr := range group {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if a.Value.String() == "" || !IsSensitiveKey(a.Key) {
			return a
		}
		return slog.String(a.Key, redactedValue)
	default:
		return a
	}
}
