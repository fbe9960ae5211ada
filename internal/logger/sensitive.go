package logger

import (
	"regexp"
)

// sensitivePatterns match credentials that end up inside sink URLs and
// error strings. The first capture group is kept, the rest is replaced.
var sensitivePatterns = []*regexp.Regexp{
	// Telegram bot tokens in API paths and shoutrrr URLs: bot123456:ABC-def
	regexp.MustCompile(`(bot)(\d{5,}:[A-Za-z0-9_-]{20,})`),
	regexp.MustCompile(`(telegram://)([^@\s]+)`),
	// Basic auth userinfo in URLs
	regexp.MustCompile(`([a-z][a-z0-9+.-]*://[^:@/\s]+:)([^@\s]+)`),
	// Bearer tokens
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	// key=value style secrets, including routing_key
	regexp.MustCompile(`(?i)((?:api|access|auth|token|secret|routing)[_-]?(?:key|token)?["']?\s*[:=]\s*["']?)([^;,\s"']{5,})`),
}

// RedactSensitiveData replaces credentials in input with "[REDACTED]".
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for _, p := range sensitivePatterns {
		input = p.ReplaceAllString(input, "${1}[REDACTED]")
	}
	return input
}
