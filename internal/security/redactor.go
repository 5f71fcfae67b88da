package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// minLiteralLen keeps short values ("yes", "1") from being treated as secrets.
const minLiteralLen = 8

// Redactor replaces secret values in strings with RedactPlaceholder, using
// regex patterns for known token formats and literal values registered at
// runtime. All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Values shorter than eight characters are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if len(secret) < minLiteralLen {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// SyncCredentials adds every value of store as a literal.
func (r *Redactor) SyncCredentials(store *CredentialStore) {
	for _, v := range store.Values() {
		r.AddLiteral(v)
	}
}

// Redact replaces all known secret patterns and literal values in s.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	return s
}

// DefaultPatterns returns compiled regex patterns for the token formats a
// Telegram bot backed by Google APIs handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Telegram bot token: <bot id>:<35 char secret>
		regexp.MustCompile(`\b[0-9]{8,10}:[A-Za-z0-9_-]{35}\b`),
		// Google API key
		regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`),
		// Google OAuth client secret
		regexp.MustCompile(`GOCSPX-[0-9A-Za-z_-]{28}`),
		// Google OAuth access token
		regexp.MustCompile(`ya29\.[0-9A-Za-z_-]{20,}`),
		// PEM private key block (service-account JSON embeds one)
		regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`),
		// Credentials in URLs (index mirrors, Sentry DSNs)
		regexp.MustCompile(`://[^/\s:@]+:[^/\s@]+@`),
	}
}
