// Package pip installs and lists packages through a virtual environment's
// own interpreter, so the global installation is never touched.
package pip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/flemzord/botstrap/internal/execx"
)

// DefaultPackages is the bot's dependency set: the Telegram bot framework and
// the Google auth and API client libraries.
var DefaultPackages = []string{
	"python-telegram-bot",
	"google-auth",
	"google-auth-oauthlib",
	"google-auth-httplib2",
	"google-api-python-client",
}

// ErrNoPackages is returned by Install when the package list is empty.
var ErrNoPackages = errors.New("pip: no packages to install")

// Package is one entry of "pip list --format=json".
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Installer drives "python -m pip" for a single interpreter.
type Installer struct {
	Runner      execx.Runner
	Interpreter string

	// Args are extra arguments passed to every install (e.g. --index-url).
	Args []string

	// Env is the subprocess environment. Nil inherits the parent's.
	Env []string
}

// Install runs a single "pip install" with every package.
func (i *Installer) Install(ctx context.Context, packages []string) error {
	if len(packages) == 0 {
		return ErrNoPackages
	}
	args := make([]string, 0, 3+len(i.Args)+len(packages))
	args = append(args, "-m", "pip", "install")
	args = append(args, i.Args...)
	args = append(args, packages...)

	err := i.Runner.Run(ctx, execx.Cmd{Path: i.Interpreter, Args: args, Env: i.Env})
	if err != nil {
		return fmt.Errorf("pip: install: %w", err)
	}
	return nil
}

// List returns the packages installed in the environment.
func (i *Installer) List(ctx context.Context) ([]Package, error) {
	out, err := i.Runner.Output(ctx, execx.Cmd{
		Path: i.Interpreter,
		Args: []string{"-m", "pip", "list", "--format=json", "--disable-pip-version-check"},
		Env:  i.Env,
	})
	if err != nil {
		return nil, fmt.Errorf("pip: list: %w", err)
	}
	var pkgs []Package
	if err := json.Unmarshal(out, &pkgs); err != nil {
		return nil, fmt.Errorf("pip: parsing list output: %w", err)
	}
	return pkgs, nil
}

// separatorRun matches the runs that PEP 503 collapses to a single dash.
var separatorRun = regexp.MustCompile(`[-_.]+`)

// Normalize returns the PEP 503 canonical form of a distribution name.
func Normalize(name string) string {
	return strings.ToLower(separatorRun.ReplaceAllString(BaseName(name), "-"))
}

// BaseName strips extras, version specifiers and markers from a
// requirement string such as "python-telegram-bot[job-queue]>=20".
func BaseName(requirement string) string {
	if i := strings.IndexAny(requirement, "[<>=!~;@ "); i >= 0 {
		requirement = requirement[:i]
	}
	return strings.TrimSpace(requirement)
}

// Missing returns the declared requirements that are absent from installed,
// in declaration order.
func Missing(installed []Package, declared []string) []string {
	have := make(map[string]struct{}, len(installed))
	for _, p := range installed {
		have[Normalize(p.Name)] = struct{}{}
	}
	var missing []string
	for _, req := range declared {
		if _, ok := have[Normalize(req)]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// Canonical returns the normalized, sorted and de-duplicated package names.
func Canonical(packages []string) []string {
	out := make([]string, 0, len(packages))
	for _, p := range packages {
		out = append(out, Normalize(p))
	}
	slices.Sort(out)
	return slices.Compact(out)
}
