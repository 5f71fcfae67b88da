package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path/filepath"
	"strings"

	"github.com/flemzord/botstrap/internal/cron"
	"github.com/flemzord/botstrap/internal/pip"
	"github.com/flemzord/botstrap/internal/shell"
)

// Validate checks the structural validity of a Config and reports every
// problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	errs = append(errs, validateEnvironment(cfg)...)
	errs = append(errs, validatePackages(cfg.Packages)...)

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch cfg.Log.Format {
	case "", "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format: unknown format %q (want auto, text or json)", cfg.Log.Format))
	}

	if cfg.Watch.Schedule == "" {
		errs = append(errs, errors.New("config: watch.schedule is required"))
	} else if err := cron.ParseSchedule(cfg.Watch.Schedule); err != nil {
		errs = append(errs, fmt.Errorf("config: watch.schedule: %w", err))
	}
	if cfg.Watch.Listen == "" {
		errs = append(errs, errors.New("config: watch.listen is required"))
	} else if _, _, err := net.SplitHostPort(cfg.Watch.Listen); err != nil {
		errs = append(errs, fmt.Errorf("config: watch.listen: %w", err))
	}
	if cfg.Journal.Keep < 0 {
		errs = append(errs, fmt.Errorf("config: journal.keep must be non-negative, got %d", cfg.Journal.Keep))
	}

	return errors.Join(errs...)
}

func validateEnvironment(cfg *Config) []error {
	var errs []error

	dir := filepath.Clean(cfg.Environment.Dir)
	switch {
	case cfg.Environment.Dir == "":
		errs = append(errs, errors.New("config: environment.dir is required"))
	case dir == ".":
		errs = append(errs, errors.New("config: environment.dir must not be the working directory"))
	}

	if cfg.EntryPoint == "" {
		errs = append(errs, errors.New("config: entry_point is required"))
	} else if cfg.Environment.Dir != "" && filepath.Clean(cfg.EntryPoint) == dir {
		errs = append(errs, errors.New("config: entry_point and environment.dir must differ"))
	}

	for i, l := range cfg.Environment.Launchers {
		if strings.TrimSpace(l) == "" {
			errs = append(errs, fmt.Errorf("config: environment.launchers[%d]: empty launcher", i))
		}
	}

	if _, err := shell.ParseVariant(cfg.Environment.Shell); err != nil {
		errs = append(errs, fmt.Errorf("config: environment.shell: %w", err))
	}

	return errs
}

func validatePackages(packages []string) []error {
	if len(packages) == 0 {
		return []error{errors.New("config: at least one package must be declared")}
	}

	var errs []error
	seen := make(map[string]int, len(packages))
	for i, p := range packages {
		if pip.BaseName(p) == "" {
			errs = append(errs, fmt.Errorf("config: packages[%d]: empty package name", i))
			continue
		}
		name := pip.Normalize(p)
		if j, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("config: packages[%d]: %q duplicates packages[%d]", i, p, j))
			continue
		}
		seen[name] = i
	}
	return errs
}

// ParseLevel converts a configured level name into a slog.Level.
// An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: log.level: %w", err)
	}
	return level, nil
}
