package settings

import "errors"

// Sentinel errors for the fixed set of fatal conditions the engine can
// raise. Wrapped with fmt.Errorf("...: %w", ...) at each boundary so
// callers can match with errors.Is.
var (
	ErrLoaderFailed        = errors.New("settings loader failed")
	ErrValidationFailed    = errors.New("schema validation failed")
	ErrParametersUpdated   = errors.New("build parameters updated")
	ErrStopOnFail          = errors.New("run aborted by stop_on_fail")
	ErrUndefinedVariable   = errors.New("undefined template variable")
	ErrDuplicateActionLink = errors.New("duplicate action-link name")
	ErrUnknownActionLink   = errors.New("unknown action-link name")
	ErrNoDiscriminator     = errors.New("action-link has no recognised discriminator")
	ErrUnknownPlaybook     = errors.New("unknown playbook")
	ErrUnknownInventory    = errors.New("unknown inventory")
	ErrUnknownScript       = errors.New("unknown script")
)
