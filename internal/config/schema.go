// Package config handles YAML configuration loading, environment variable
// expansion, defaults, and structural validation for botstrap.
package config

import (
	"github.com/flemzord/botstrap/internal/bootstrap"
	"github.com/flemzord/botstrap/internal/pip"
	"github.com/flemzord/botstrap/internal/scaffold"
	"github.com/flemzord/botstrap/internal/venv"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Environment EnvironmentConfig `yaml:"environment"`

	// Packages are installed into the environment with a single pip call.
	Packages []string `yaml:"packages"`

	Pip PipConfig `yaml:"pip"`

	// EntryPoint is the bot source file scaffolded in the working directory.
	EntryPoint string `yaml:"entry_point"`

	Log       LogConfig       `yaml:"log"`
	Journal   JournalConfig   `yaml:"journal"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Sentry    SentryConfig    `yaml:"sentry"`
	Watch     WatchConfig     `yaml:"watch"`
	Doctor    DoctorConfig    `yaml:"doctor"`
}

// EnvironmentConfig controls virtual environment creation and activation.
type EnvironmentConfig struct {
	// Dir is the environment directory, relative to the working directory.
	Dir string `yaml:"dir"`

	// Launchers are tried in order to run "-m venv".
	Launchers []string `yaml:"launchers,omitempty"`

	// Shell forces the activation variant: modern, legacy, posix or auto.
	Shell string `yaml:"shell,omitempty"`

	// RollbackOnFailure removes an environment created by a failed run.
	RollbackOnFailure bool `yaml:"rollback_on_failure"`
}

// PipConfig holds extra pip settings.
type PipConfig struct {
	// Args are appended to "pip install" (e.g. --index-url, --no-cache-dir).
	Args []string `yaml:"args,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text, json or auto (text on a terminal, json otherwise).
	Format string `yaml:"format"`
}

// JournalConfig controls the SQLite run journal.
type JournalConfig struct {
	// Path overrides the default journal location in the data directory.
	Path string `yaml:"path,omitempty"`

	Disabled bool `yaml:"disabled"`

	// Keep bounds the number of runs retained by watch mode's prune job.
	Keep int `yaml:"keep"`
}

// MetricsConfig controls Prometheus export for one-shot runs.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in the node_exporter
	// textfile format.
	Textfile string `yaml:"textfile,omitempty"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	// OTLPEndpoint is host:port of an OTLP/HTTP collector. Empty disables
	// export.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// Insecure disables TLS toward the collector.
	Insecure bool `yaml:"insecure"`

	ServiceName string `yaml:"service_name"`
}

// SentryConfig controls failure reporting.
type SentryConfig struct {
	// DSN enables reporting when non-empty.
	DSN         string `yaml:"dsn,omitempty"`
	Environment string `yaml:"environment,omitempty"`
}

// WatchConfig controls the drift monitor.
type WatchConfig struct {
	// Schedule is a five-field cron expression.
	Schedule string `yaml:"schedule"`

	// Listen is the address of the health and metrics server.
	Listen string `yaml:"listen"`

	// Token, when set, is required as a bearer token on /status.
	Token string `yaml:"token,omitempty"`
}

// DoctorConfig controls the bot readiness checks.
type DoctorConfig struct {
	// DotEnv is the bot's environment file, relative to the working directory.
	DotEnv string `yaml:"dotenv"`

	// Required lists keys that must be set in DotEnv.
	Required []string `yaml:"required"`

	// CredentialsKey names the key holding the service-account file path.
	CredentialsKey string `yaml:"credentials_key"`

	// TokenKey names the key holding the Telegram bot token.
	TokenKey string `yaml:"token_key"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version: "1",
		Environment: EnvironmentConfig{
			Dir:       bootstrap.DefaultEnvDir,
			Launchers: append([]string(nil), venv.DefaultLaunchers...),
			Shell:     "auto",
		},
		Packages:   append([]string(nil), pip.DefaultPackages...),
		EntryPoint: scaffold.DefaultEntryPoint,
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Journal:   JournalConfig{Keep: 200},
		Telemetry: TelemetryConfig{ServiceName: "botstrap"},
		Watch: WatchConfig{
			Schedule: "*/15 * * * *",
			Listen:   "127.0.0.1:9464",
		},
		Doctor: DoctorConfig{
			DotEnv: ".env",
			Required: []string{
				"TELEGRAM_BOT_TOKEN",
				"GOOGLE_APPLICATION_CREDENTIALS",
				"GOOGLE_SHEETS_SPREADSHEET_ID",
			},
			CredentialsKey: "GOOGLE_APPLICATION_CREDENTIALS",
			TokenKey:       "TELEGRAM_BOT_TOKEN",
		},
	}
}
