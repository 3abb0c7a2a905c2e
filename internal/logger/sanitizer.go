package logger

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Sanitizer masks Google credentials and personal data before a line reaches any output
//
// Messages and string values go through every rule. SanitizeArgs additionally masks the
// whole value of a sensitive key (see sensitiveKeys). A secret hidden in the value of an
// ordinary key is only caught when a rule pattern recognises it.
type Sanitizer struct {
	mu    sync.RWMutex
	rules []SanitizeRule
}

// SanitizeRule is one named pattern and its replacement
type SanitizeRule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// sensitiveKeys are matched as substrings of lower-cased attribute keys
var sensitiveKeys = []string{"token", "secret", "private_key", "credential", "authorization", "password"}

// NewSanitizer creates a sanitizer with the default rules
func NewSanitizer() *Sanitizer {
	return &Sanitizer{rules: defaultRules()}
}

func defaultRules() []SanitizeRule {
	rule := func(name, pattern, replacement string) SanitizeRule {
		return SanitizeRule{Name: name, Pattern: regexp.MustCompile(pattern), Replacement: replacement}
	}

	return []SanitizeRule{
		// Service-account key material, whole PEM block or JSON field
		rule("pem private key", `(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?-----END [A-Z ]*PRIVATE KEY-----`, "[private key]"),
		rule("credential json field", `(?i)"(private_key|client_secret|refresh_token|access_token)"\s*:\s*"[^"]*"`, `"$1":"***"`),

		// OAuth tokens as Google issues them, and as they travel in headers and URLs
		rule("bearer header", `(?i)bearer\s+\S+`, "bearer ***"),
		rule("access token", `ya29\.[0-9A-Za-z_\-.]+`, "ya29.***"),
		rule("refresh token", `1//[0-9A-Za-z_\-]{20,}`, "1//***"),
		rule("api key", `AIza[0-9A-Za-z_\-]{35}`, "AIza***"),
		rule("url credential", `(?i)([?&](?:access_token|token|key|code)=)[^&\s"]+`, "${1}***"),

		// Credential and destination paths reveal the account name
		rule("windows profile", `(?i)[A-Z]:\\Users\\[^\\]+`, `***:\Users\***`),
		rule("unix home", `/(home|Users)/[^/\s]+`, "/$1/***"),

		// Service-account and owner addresses keep only a short prefix
		rule("email", `([a-zA-Z0-9._%+-]{1,3})[a-zA-Z0-9._%+-]*@`, "$1***@"),
	}
}

// Sanitize applies every rule to input
func (s *Sanitizer) Sanitize(input string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.rules {
		input = r.Pattern.ReplaceAllString(input, r.Replacement)
	}
	return input
}

// SanitizeArgs returns a copy of slog-style key/value pairs with secrets masked
func (s *Sanitizer) SanitizeArgs(args []any) []any {
	if len(args) == 0 {
		return args
	}

	result := make([]any, len(args))
	copy(result, args)

	for i := 0; i+1 < len(result); i += 2 {
		key, ok := result[i].(string)
		if !ok {
			continue
		}

		var value string
		switch v := result[i+1].(type) {
		case string:
			value = v
		case error:
			value = v.Error()
		default:
			// Numbers, durations and the like never carry secrets
			continue
		}

		if isSensitiveKey(key) {
			result[i+1] = maskValue(value)
		} else {
			result[i+1] = s.Sanitize(value)
		}
	}

	return result
}

// AddRule appends a custom rule
func (s *Sanitizer) AddRule(name, pattern, replacement string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern for rule %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, SanitizeRule{Name: name, Pattern: re, Replacement: replacement})
	return nil
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last character of long values only
func maskValue(value string) string {
	switch {
	case len(value) <= 2:
		return "***"
	case len(value) <= 8:
		return value[:1] + "***"
	default:
		return value[:1] + "***" + value[len(value)-1:]
	}
}
