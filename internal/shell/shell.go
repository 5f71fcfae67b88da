// Package shell detects which command shell is hosting the process and maps
// that shell to the activation script of a Python virtual environment.
//
// Detection is a pure function of the environment variables and target OS so
// that every branch can be tested without launching a real shell.
package shell

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Variant identifies a family of shells that share an activation script.
type Variant string

const (
	// Modern is PowerShell (Windows PowerShell or pwsh).
	Modern Variant = "modern"
	// Legacy is the Windows command prompt (cmd.exe).
	Legacy Variant = "legacy"
	// Posix is any sh-compatible shell. It is also the fallback.
	Posix Variant = "posix"
)

// ParseVariant converts a configured shell name into a Variant.
// An empty string or "auto" returns "" so the caller falls back to Detect.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return "", nil
	case "modern", "pwsh", "powershell":
		return Modern, nil
	case "legacy", "cmd", "cmd.exe":
		return Legacy, nil
	case "posix", "sh", "bash", "zsh":
		return Posix, nil
	default:
		return "", fmt.Errorf("shell: unknown variant %q (want modern, legacy, posix or auto)", s)
	}
}

// Host is the view of the running process that detection depends on.
type Host struct {
	GOOS      string
	LookupEnv func(key string) (string, bool)
}

// CurrentHost describes the running process.
func CurrentHost() Host {
	return Host{GOOS: runtime.GOOS, LookupEnv: os.LookupEnv}
}

func (h Host) env(key string) string {
	if h.LookupEnv == nil {
		return ""
	}
	v, _ := h.LookupEnv(key)
	return v
}

// Detect returns the shell variant hosting the process. Each variant has its
// own signals; when exactly one variant matches it wins, otherwise (no match
// or conflicting matches) the result is Posix.
func Detect(h Host) Variant {
	var matched []Variant
	if isModern(h) {
		matched = append(matched, Modern)
	}
	if isLegacy(h) {
		matched = append(matched, Legacy)
	}
	if isPosix(h) {
		matched = append(matched, Posix)
	}
	if len(matched) == 1 {
		return matched[0]
	}
	return Posix
}

func isModern(h Host) bool {
	if h.env("POWERSHELL_DISTRIBUTION_CHANNEL") != "" {
		return true
	}
	if psModulePath := h.env("PSModulePath"); psModulePath != "" {
		// PSModulePath is machine-wide on Windows. Only the per-user entry,
		// which PowerShell adds at session start, marks a PowerShell host.
		if h.GOOS != "windows" || hasUserModulePath(psModulePath) {
			return true
		}
	}
	return isPowerShellName(shellName(h.env("SHELL")))
}

// userModuleDirs are the per-user module directories of Windows PowerShell
// 5.1 and PowerShell 7, relative to the profile root.
var userModuleDirs = []string{
	`documents\windowspowershell\modules`,
	`documents\powershell\modules`,
}

func hasUserModulePath(psModulePath string) bool {
	for _, entry := range strings.Split(psModulePath, ";") {
		entry = strings.TrimRight(strings.ReplaceAll(strings.ToLower(entry), "/", `\`), `\`)
		for _, dir := range userModuleDirs {
			if strings.HasSuffix(entry, `\`+dir) {
				return true
			}
		}
	}
	return false
}

func isLegacy(h Host) bool {
	return h.GOOS == "windows" && h.env("PROMPT") != ""
}

func isPosix(h Host) bool {
	name := shellName(h.env("SHELL"))
	return name != "" && !isPowerShellName(name)
}

// shellName returns the lowercase base name of a shell path without an
// .exe suffix. Both separators are accepted.
func shellName(path string) string {
	if path == "" {
		return ""
	}
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	return strings.TrimSuffix(strings.ToLower(path), ".exe")
}

func isPowerShellName(name string) bool {
	return name == "pwsh" || name == "powershell"
}
