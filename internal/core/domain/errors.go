package domain

import "go.trai.ch/zerr"

var (
	// ErrStepAlreadyExists is returned when two steps declare the same identifier.
	ErrStepAlreadyExists = zerr.New("step already exists")

	// ErrUnknownStep is returned when a requires entry names an undeclared step.
	ErrUnknownStep = zerr.New("unknown step")

	// ErrCycleDetected is returned when the requires relation contains a cycle.
	ErrCycleDetected = zerr.New("dependency cycle detected")

	// ErrStepNotFound is returned when a requested step is not in the graph.
	ErrStepNotFound = zerr.New("step not found")

	// ErrUnknownProfile is returned when a build names an undeclared profile.
	ErrUnknownProfile = zerr.New("unknown profile")

	// ErrNoProfileSpecified is returned when a run names no profile but the
	// configuration declares some.
	ErrNoProfileSpecified = zerr.New("no profile specified")

	// ErrMissingField is returned when a step declaration lacks a required key.
	ErrMissingField = zerr.New("missing required field")

	// ErrForbiddenPlaceholder is returned when a PARAMETERS value references a
	// late-bound placeholder such as {OUTPUT}.
	ErrForbiddenPlaceholder = zerr.New("placeholder not allowed in parameters")

	// ErrUnresolvedVariable is returned when a template references a variable
	// absent from the active context.
	ErrUnresolvedVariable = zerr.New("unresolved template variable")

	// ErrIndexOutOfRange is returned for {KEY[n]} references past the end of a
	// list-valued variable, including {REQUIRES[n]} and {INPUTS[n]}.
	ErrIndexOutOfRange = zerr.New("index out of range")

	// ErrMissingInputSwitch is returned when a rule uses switch input style
	// without declaring input_switch_name.
	ErrMissingInputSwitch = zerr.New("input_switch_name required for switch input style")

	// ErrMissingOutputPlaceholder is returned when a rule's command template
	// lacks the mandatory {OUTPUT} token.
	ErrMissingOutputPlaceholder = zerr.New("command template missing {OUTPUT} placeholder")

	// ErrMissingParametersPlaceholder is returned when parameters are declared
	// but the command template has no {PARAMETERS} token to receive them.
	ErrMissingParametersPlaceholder = zerr.New("command template missing {PARAMETERS} placeholder")

	// ErrMissingPositionalsPlaceholder is returned when positional filenames
	// are declared but the command template has no {POSITIONAL_FILENAMES} token.
	ErrMissingPositionalsPlaceholder = zerr.New("command template missing {POSITIONAL_FILENAMES} placeholder")

	// ErrStepExecutionFailed wraps a non-zero exit from a step's shell command.
	ErrStepExecutionFailed = zerr.New("step execution failed")

	// ErrBuildFailed is returned by a run in which any step failed or was
	// skipped because of an upstream failure.
	ErrBuildFailed = zerr.New("build failed")
)
