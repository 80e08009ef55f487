package goCaptcha

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports invalid session or engine configuration. No
	// challenge is generated and no session starts.
	ErrConfiguration = errors.New("invalid captcha configuration")
	// ErrRenderingUnavailable reports that no raster backend could render the challenge.
	ErrRenderingUnavailable = errors.New("challenge rendering unavailable")
	// ErrDeliveryFailure reports that the transport could not deliver the challenge.
	ErrDeliveryFailure = errors.New("challenge delivery failed")
	// ErrSideEffectFailure reports a failed grant, revoke or remove call.
	ErrSideEffectFailure = errors.New("outcome side effect failed")
	// ErrSessionActive reports that the subject already has a live session.
	ErrSessionActive = errors.New("captcha session already active for subject")
	// ErrPresentRateLimited reports that the subject or IP exhausted its presentation budget.
	ErrPresentRateLimited = errors.New("captcha presentation rate limited")
	// ErrSessionCanceled reports a session stopped by Cancel or by the caller's context.
	ErrSessionCanceled = errors.New("captcha session canceled")
	// ErrResponseSourceFailure reports an error raised by the response source itself.
	ErrResponseSourceFailure = errors.New("response source failed")
	// ErrBackendUnavailable reports a Redis failure in the limiter or session lock.
	ErrBackendUnavailable = errors.New("captcha backend unavailable")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrInvalidSubject reports an empty subject identifier.
	ErrInvalidSubject = errors.New("invalid subject")
	// ErrPassInvalid reports a verification pass that failed verification.
	ErrPassInvalid = errors.New("invalid verification pass")
	// ErrPassDisabled reports pass operations on an engine without passes configured.
	ErrPassDisabled = errors.New("verification passes disabled")
)

// ConfigurationError names the offending field. It matches ErrConfiguration
// under errors.Is.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErr(field, reason string) error {
	return &ConfigurationError{Field: field, Reason: reason}
}

// SideEffectError is reported for each failed authorization action. It
// matches ErrSideEffectFailure and the underlying cause under errors.Is.
type SideEffectError struct {
	Action    string
	SubjectID string
	Err       error
}

func (e *SideEffectError) Error() string {
	return fmt.Sprintf("%s: %s for subject %s: %v", ErrSideEffectFailure, e.Action, e.SubjectID, e.Err)
}

func (e *SideEffectError) Unwrap() []error {
	return []error{ErrSideEffectFailure, e.Err}
}
