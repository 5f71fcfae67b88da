package security

import (
	"os"
	"strings"
)

// sensitiveEnvPrefixes are stripped from subprocess environments. pip and
// venv never need them, and pip's build backends execute arbitrary code.
var sensitiveEnvPrefixes = []string{
	"TELEGRAM_BOT_TOKEN",
	"GOOGLE_API_KEY",
	"GOOGLE_CLIENT_SECRET",
	"GOOGLE_SHEETS_",
	"SENTRY_AUTH_TOKEN",
	"AWS_SECRET",
	"AWS_SESSION_TOKEN",
	"GITHUB_TOKEN",
	"GH_TOKEN",
}

// sensitiveEnvExact are stripped by exact name only. SENTRY_DSN is exact so
// SENTRY_ENVIRONMENT survives.
var sensitiveEnvExact = map[string]struct{}{
	"SENTRY_DSN":            {},
	"AWS_SECRET_ACCESS_KEY": {},
}

// SanitizedEnv returns environ with sensitive variables removed: the
// well-known secret names, plus every variable named like a credential in
// store. Surviving entries are passed through unchanged; secret values are
// masked in logs by the Redactor, never inside the environment.
func SanitizedEnv(environ []string, store *CredentialStore) []string {
	result := make([]string, 0, len(environ))

	stored := make(map[string]struct{})
	if store != nil {
		for _, name := range store.Names() {
			stored[strings.ToUpper(name)] = struct{}{}
		}
	}

	for _, entry := range environ {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if isSensitiveEnvVar(key) {
			continue
		}
		if _, ok := stored[strings.ToUpper(key)]; ok {
			continue
		}
		result = append(result, entry)
	}

	return result
}

// ProcessEnv is SanitizedEnv applied to the current process environment.
func ProcessEnv(store *CredentialStore) []string {
	return SanitizedEnv(os.Environ(), store)
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)

	if _, ok := sensitiveEnvExact[upper]; ok {
		return true
	}
	for _, prefix := range sensitiveEnvPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
