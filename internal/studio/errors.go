package studio

import "errors"

var (
	ErrBusy         = errors.New("studio: a request is already in flight")
	ErrUnknownMode  = errors.New("studio: unknown mode")
	ErrUnknownField = errors.New("studio: unknown field")
	ErrInvalidValue = errors.New("studio: invalid value")
	ErrWrongMode    = errors.New("studio: field addressed to an inactive mode")
	ErrWrongPhase   = errors.New("studio: action not allowed in current phase")
	ErrStale        = errors.New("studio: response discarded after mode switch or reset")
	ErrNoArtifacts  = errors.New("studio: no artifacts produced")
)

// ValidationError reports a missing or malformed input detected before any
// external call. Message is user-facing.
type ValidationError struct {
	Field   Field
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ServiceError is a failure reported by the generation service, already
// reduced to the message shown to the user.
type ServiceError struct {
	Op      Operation
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// CredentialFailure is a rejected premium credential. Message is the
// validator's reason, shown inline in the gate dialog.
type CredentialFailure struct {
	Message string
	Err     error
}

func (e *CredentialFailure) Error() string {
	return e.Message
}

func (e *CredentialFailure) Unwrap() error {
	return e.Err
}
