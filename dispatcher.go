package goCaptcha

import (
	"context"
	"errors"
	"log"

	"github.com/MrEthical07/goCaptcha/internal/flows"
)

// checkBindings rejects outcome flags whose capability was never wired.
func (e *Engine) checkBindings(cfg SessionConfig) error {
	return checkBindings(cfg, e.granter, e.revoker, e.remover)
}

func checkBindings(cfg SessionConfig, g RoleGranter, r RoleRevoker, rm SubjectRemover) error {
	if cfg.GrantOnSuccess && g == nil {
		return configErr("Session.GrantOnSuccess", "requires a RoleGranter")
	}
	if cfg.RevokeOnSuccess && r == nil {
		return configErr("Session.RevokeOnSuccess", "requires a RoleRevoker")
	}
	if (cfg.RemoveOnFailure || cfg.RemoveOnTimeout) && rm == nil {
		field := "Session.RemoveOnFailure"
		if !cfg.RemoveOnFailure {
			field = "Session.RemoveOnTimeout"
		}
		return configErr(field, "requires a SubjectRemover")
	}
	return nil
}

// dispatch runs the authorization actions enabled for a terminal outcome, in
// order. Failures are reported and logged; they never change the outcome and
// never stop the remaining actions.
func (e *Engine) dispatch(ctx context.Context, cfg SessionConfig, o Outcome) []SideEffectReport {
	actions := flows.PlanSideEffects(emissionKind(o.Kind), flows.OutcomeFlags{
		GrantOnSuccess:  cfg.GrantOnSuccess,
		RevokeOnSuccess: cfg.RevokeOnSuccess,
		RemoveOnFailure: cfg.RemoveOnFailure,
		RemoveOnTimeout: cfg.RemoveOnTimeout,
	})
	if len(actions) == 0 {
		return nil
	}

	reports := make([]SideEffectReport, 0, len(actions))
	for _, action := range actions {
		report := SideEffectReport{Action: action.String()}

		var err error
		switch action {
		case flows.ActionGrant:
			err = e.granter.GrantRole(ctx, o.SubjectID)
		case flows.ActionRevoke:
			err = e.revoker.RevokeRole(ctx, o.SubjectID)
		case flows.ActionRemove:
			allowed, gateErr := e.allowRemoval(ctx, o)
			switch {
			case gateErr != nil:
				err = gateErr
				report.Skipped = true
			case !allowed:
				report.Skipped = true
			default:
				err = e.remover.RemoveSubject(ctx, o.SubjectID)
			}
		}

		if err != nil {
			report.Err = &SideEffectError{Action: report.Action, SubjectID: o.SubjectID, Err: err}
			e.metricInc(MetricSideEffectFailure)
			log.Printf("goCaptcha: %v", report.Err)
		}
		e.auditSideEffect(ctx, o, report)
		reports = append(reports, report)
	}
	return reports
}

func (e *Engine) allowRemoval(ctx context.Context, o Outcome) (bool, error) {
	if e.gate == nil {
		return true, nil
	}
	allowed, err := e.gate.AllowRemoval(ctx, o.SubjectID, o.Kind)
	if err != nil {
		return false, errors.Join(errRemovalGate, err)
	}
	return allowed, nil
}

var errRemovalGate = errors.New("removal gate failed")

func (e *Engine) auditSideEffect(ctx context.Context, o Outcome, report SideEffectReport) {
	e.emitAudit(ctx, auditEventSideEffect, report.Err == nil && !report.Skipped, o.SubjectID, o.SessionID, o.Attempt, report.Err, func() map[string]string {
		m := map[string]string{
			"action":  report.Action,
			"outcome": o.Kind.String(),
		}
		if report.Skipped {
			m["skipped"] = "true"
		}
		return m
	})
}
