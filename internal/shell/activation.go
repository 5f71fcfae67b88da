package shell

import "strings"

// Activation describes how a virtual environment is entered from a given
// shell. Interpreter is the value the rest of the pipeline uses in place of
// mutating ambient shell state.
type Activation struct {
	Variant Variant

	// EnvDir is the environment directory as configured.
	EnvDir string

	// Script is the activation script for Variant.
	Script string

	// Interpreter is the environment's own Python executable.
	Interpreter string

	goos string
}

// scriptNames maps each variant to the activation script that venv writes.
var scriptNames = map[Variant]string{
	Modern: "Activate.ps1",
	Legacy: "activate.bat",
	Posix:  "activate",
}

// Activate returns the activation paths for envDir under variant on goos.
// Windows environments keep executables in Scripts, all others in bin.
func Activate(variant Variant, envDir, goos string) Activation {
	if _, ok := scriptNames[variant]; !ok {
		variant = Posix
	}
	dir := binDir(goos)
	python := "python"
	if goos == "windows" {
		python = "python.exe"
	}
	return Activation{
		Variant:     variant,
		EnvDir:      envDir,
		Script:      join(goos, envDir, dir, scriptNames[variant]),
		Interpreter: join(goos, envDir, dir, python),
		goos:        goos,
	}
}

// Command is the line an operator types in their own shell to activate the
// environment.
func (a Activation) Command() string {
	switch a.Variant {
	case Modern:
		return "& " + a.relative()
	case Legacy:
		return a.relative()
	default:
		// sh-compatible shells on Windows (Git Bash, MSYS) treat a
		// backslash as an escape.
		return "source " + strings.ReplaceAll(a.Script, `\`, "/")
	}
}

// relative prefixes bare relative paths so PowerShell and cmd resolve them
// from the working directory.
func (a Activation) relative() string {
	sep := separator(a.goos)
	if strings.HasPrefix(a.Script, sep) || strings.HasPrefix(a.Script, ".") || (len(a.Script) > 1 && a.Script[1] == ':') {
		return a.Script
	}
	return "." + sep + a.Script
}

func binDir(goos string) string {
	if goos == "windows" {
		return "Scripts"
	}
	return "bin"
}

func separator(goos string) string {
	if goos == "windows" {
		return `\`
	}
	return "/"
}

func join(goos string, elems ...string) string {
	sep := separator(goos)
	parts := make([]string, 0, len(elems))
	for _, e := range elems {
		e = strings.TrimRight(e, `/\`)
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, sep)
}
