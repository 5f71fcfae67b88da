// Package doctor checks that a bootstrapped working directory is ready for
// the bot to start: its .env keys, its Google service-account file and,
// optionally, that the Telegram token is accepted by the Bot API.
package doctor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"

	"github.com/flemzord/botstrap/internal/security"
)

// Status is the verdict of one check.
type Status string

// Check verdicts. Only StatusFail makes a report unhealthy.
const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// DefaultOptionalFiles are looked for next to the .env file. The bot falls
// back to text when they are absent, so a miss is only a warning.
var DefaultOptionalFiles = []string{"welcome_image.jpg"}

var tokenPattern = regexp.MustCompile(`^[0-9]{8,10}:[A-Za-z0-9_-]{35}$`)

// Check is one line of a doctor report.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// Report is the ordered list of checks.
type Report struct {
	Checks []Check
}

// OK reports whether no check failed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

func (r *Report) add(name string, status Status, format string, args ...any) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Detail: fmt.Sprintf(format, args...)})
}

// Options configures a doctor run.
type Options struct {
	// DotEnv is the path of the bot's .env file.
	DotEnv string

	// Required keys must be present and non-empty.
	Required []string

	// CredentialsKey names the key holding the service-account path.
	// Relative paths resolve against the .env directory.
	CredentialsKey string

	// TokenKey names the key holding the Telegram bot token.
	TokenKey string

	OptionalFiles []string

	// Online calls getMe with the token.
	Online bool

	// APIEndpoint is a Bot API URL format with two %s verbs (token, method).
	// Empty means the public Telegram endpoint.
	APIEndpoint string
	HTTPClient  *http.Client

	// Store receives every secret read from .env and the credentials file
	// so the logger can redact them.
	Store *security.CredentialStore
}

// Run executes every check. It never mutates the process environment.
func Run(ctx context.Context, opts Options) *Report {
	report := &Report{}

	values, err := godotenv.Read(opts.DotEnv)
	if err != nil {
		report.add("dotenv", StatusFail, "cannot read %s: %v", opts.DotEnv, err)
		return report
	}
	report.add("dotenv", StatusPass, "%s (%d keys)", opts.DotEnv, len(values))

	if opts.Store != nil {
		for k, v := range values {
			if k != opts.CredentialsKey {
				opts.Store.Set(k, v)
			}
		}
	}

	for _, key := range opts.Required {
		if strings.TrimSpace(values[key]) == "" {
			report.add("key "+key, StatusFail, "missing or empty in %s", filepath.Base(opts.DotEnv))
			continue
		}
		report.add("key "+key, StatusPass, "set")
	}

	baseDir := filepath.Dir(opts.DotEnv)
	if opts.CredentialsKey != "" {
		if path := values[opts.CredentialsKey]; path != "" {
			checkCredentials(report, resolve(baseDir, path), opts.Store)
		}
	}

	if opts.TokenKey != "" {
		if token := values[opts.TokenKey]; token != "" {
			checkToken(ctx, report, token, opts)
		}
	}

	for _, name := range opts.OptionalFiles {
		if _, err := os.Stat(resolve(baseDir, name)); err != nil {
			report.add("file "+name, StatusWarn, "not found, the bot will fall back to text")
			continue
		}
		report.add("file "+name, StatusPass, "present")
	}

	return report
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func checkCredentials(report *Report, path string, store *security.CredentialStore) {
	const name = "service account"

	data, err := os.ReadFile(path)
	if err != nil {
		report.add(name, StatusFail, "cannot read %s: %v", path, err)
		return
	}

	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		report.add(name, StatusFail, "%s is not valid JSON: %v", path, err)
		return
	}
	if store != nil && sa.PrivateKey != "" {
		store.Set("service_account.private_key", sa.PrivateKey)
	}

	switch {
	case sa.Type != "service_account":
		report.add(name, StatusFail, "%s has type %q, want \"service_account\"", path, sa.Type)
	case sa.ClientEmail == "":
		report.add(name, StatusFail, "%s has no client_email", path)
	case sa.PrivateKey == "":
		report.add(name, StatusFail, "%s has no private_key", path)
	default:
		report.add(name, StatusPass, "%s (project %s)", sa.ClientEmail, sa.ProjectID)
	}
}

func checkToken(ctx context.Context, report *Report, token string, opts Options) {
	const name = "telegram token"

	if !tokenPattern.MatchString(token) {
		report.add(name, StatusWarn, "does not look like <bot id>:<secret>")
	} else if !opts.Online {
		report.add(name, StatusPass, "well-formed")
	}
	if !opts.Online {
		return
	}

	endpoint := opts.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	// The Bot API client has no context support; honour cancellation
	// before the single getMe round trip.
	if err := ctx.Err(); err != nil {
		report.add(name, StatusFail, "%v", err)
		return
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		detail := strings.ReplaceAll(err.Error(), token, security.RedactPlaceholder)
		report.add(name, StatusFail, "getMe rejected the token: %s", detail)
		return
	}
	report.add(name, StatusPass, "authenticated as @%s", bot.Self.UserName)
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
