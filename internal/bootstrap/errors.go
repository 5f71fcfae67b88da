package bootstrap

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure class of the pipeline. Match them with
// errors.Is against the error returned by Run.
var (
	// ErrEnvironmentCreation indicates the virtual environment could not be
	// created or is unusable (no launcher, venv failure, missing interpreter).
	ErrEnvironmentCreation = errors.New("environment creation failed")

	// ErrDependencyInstall indicates the package manager failed. Packages
	// installed before the failure are left in place.
	ErrDependencyInstall = errors.New("dependency install failed")

	// ErrFileCreation indicates the entry-point file could not be created.
	ErrFileCreation = errors.New("entry point creation failed")
)

// StepError records which step failed and why. It matches its failure class
// with errors.Is and exposes the underlying cause to errors.As.
type StepError struct {
	Step Step
	Kind error
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Step, e.Kind, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StepError) Unwrap() error { return e.Err }

// Is reports whether target is this error's failure class.
func (e *StepError) Is(target error) bool { return target == e.Kind }
