// Package redact strips credentials and personal data from strings before
// they are logged. Broker and database URLs routinely carry user:password
// pairs, and driver errors echo them back.
package redact

import (
	"net/url"
	"regexp"
	"strings"
)

// Redaction placeholders.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
)

var (
	// scheme://user:pass@ in connection strings.
	connCredRegex = regexp.MustCompile(`(?i)\b((?:postgres(?:ql)?|nats|tls|wss?)://)[^@/\s]+@`)

	// password=... in DSNs and key/value error text.
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:]\s*['"]?)[^'"&\s]{3,}`)

	// token=..., secret: ... and friends.
	tokenRegex = regexp.MustCompile(`(?i)(token|secret|nkey|api[_-]?key)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	emailRegex = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Order matters: connection credentials contain '@' and must be removed
// before the email rule sees them.
var rules = []rule{
	{connCredRegex, "${1}" + RedactedCredentialPlaceholder + "@"},
	{passwordRegex, "${1}${2}" + RedactedCredentialPlaceholder},
	{tokenRegex, "${1}${2}" + RedactedKeyPlaceholder},
	{emailRegex, RedactedEmailPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.repl)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// URL returns rawURL with any userinfo replaced by a placeholder, suitable
// for logging which broker or database the process talks to.
func URL(rawURL string) string {
	if rawURL == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return String(rawURL)
	}
	if u.User == nil {
		return u.String()
	}

	u.User = nil
	s := u.String()
	prefix := u.Scheme + "://"
	return prefix + RedactedCredentialPlaceholder + "@" + strings.TrimPrefix(s, prefix)
}
