package goCaptcha

import (
	"context"
	"errors"
	"strconv"
	"time"
)

const (
	auditEventPresented         = "captcha_presented"
	auditEventPrompted          = "captcha_prompted"
	auditEventAnswerReceived    = "captcha_answer_received"
	auditEventSuccess           = "captcha_success"
	auditEventFailure           = "captcha_failure"
	auditEventTimedOut          = "captcha_timed_out"
	auditEventCanceled          = "captcha_canceled"
	auditEventPresentFailed     = "captcha_present_failed"
	auditEventSideEffect        = "captcha_side_effect"
	auditEventRateLimited       = "captcha_rate_limited"
	auditEventPassVerified      = "captcha_pass_verified"
	auditEventPassRejected      = "captcha_pass_rejected"
	auditEventSessionConflicted = "captcha_session_conflict"
)

// AuditErrorCode is the stable error classification written to AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrConfiguration  AuditErrorCode = "configuration"
	auditErrRendering      AuditErrorCode = "rendering_unavailable"
	auditErrDelivery       AuditErrorCode = "delivery_failed"
	auditErrSideEffect     AuditErrorCode = "side_effect_failed"
	auditErrSessionActive  AuditErrorCode = "session_active"
	auditErrRateLimited    AuditErrorCode = "rate_limited"
	auditErrCanceled       AuditErrorCode = "canceled"
	auditErrResponseSource AuditErrorCode = "response_source_failed"
	auditErrPassInvalid    AuditErrorCode = "pass_invalid"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

var outcomeAuditEvents = map[OutcomeKind]string{
	OutcomePrompted:       auditEventPrompted,
	OutcomeAnswerReceived: auditEventAnswerReceived,
	OutcomeSuccess:        auditEventSuccess,
	OutcomeFailure:        auditEventFailure,
	OutcomeTimedOut:       auditEventTimedOut,
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subjectID string,
	sessionID string,
	attempt int,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		SubjectID: subjectID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Attempt:   attempt,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) auditOutcome(ctx context.Context, o Outcome) {
	eventType, ok := outcomeAuditEvents[o.Kind]
	if !ok {
		return
	}
	e.emitAudit(ctx, eventType, o.Kind == OutcomeSuccess, o.SubjectID, o.SessionID, o.Attempt, nil, func() map[string]string {
		return map[string]string{
			"attempts_remaining": strconv.Itoa(o.AttemptsRemaining),
			"attempts_total":     strconv.Itoa(o.AttemptsTotal),
			"responses":          strconv.Itoa(len(o.Responses)),
		}
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return auditErrConfiguration
	case errors.Is(err, ErrRenderingUnavailable):
		return auditErrRendering
	case errors.Is(err, ErrDeliveryFailure):
		return auditErrDelivery
	case errors.Is(err, ErrSideEffectFailure):
		return auditErrSideEffect
	case errors.Is(err, ErrSessionActive):
		return auditErrSessionActive
	case errors.Is(err, ErrPresentRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrSessionCanceled):
		return auditErrCanceled
	case errors.Is(err, ErrResponseSourceFailure):
		return auditErrResponseSource
	case errors.Is(err, ErrPassInvalid):
		return auditErrPassInvalid
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
