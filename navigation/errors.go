package navigation

import "github.com/pkg/errors"

// Error kinds per spec.md §7. Each is a distinct sentinel error value
// so callers can compare with errors.Is after a github.com/pkg/errors
// Wrap/Wrapf has added cycle-specific context.
var (
	// ErrConfig marks a configuration file that cannot be read, parsed,
	// or decoded. Missing keys are not detected; they decode to zero
	// values. Fatal at startup.
	ErrConfig = errors.New("config error")

	// ErrMapUnavailable marks a map-service failure that persisted
	// through every retry. Fatal at startup.
	ErrMapUnavailable = errors.New("map unavailable")

	// ErrTransformUnavailable marks a failed pose lookup. Logged and
	// the cycle is skipped; repeated failures within controller_patience
	// escalate to CLEARING.
	ErrTransformUnavailable = errors.New("transform unavailable")

	// ErrPlanFailure marks a global-planner cycle that produced no
	// path. Aborts the current goal via the goal executor; the service
	// keeps running.
	ErrPlanFailure = errors.New("plan failure")

	// ErrControlFailure marks a tick with no legal trajectory. Handled
	// by the coordinator state machine.
	ErrControlFailure = errors.New("control failure")

	// ErrOscillation marks an oscillation-detector trigger. Recorded but
	// inert in this core.
	ErrOscillation = errors.New("oscillation detected")

	// ErrFatal marks an unrecoverable condition (mutex poisoning,
	// grid-size violation). Terminates the process.
	ErrFatal = errors.New("fatal navigation error")
)
