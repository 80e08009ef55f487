package flows

// Action is an authorization side effect requested for a terminal outcome.
type Action uint8

const (
	ActionGrant Action = iota + 1
	ActionRevoke
	ActionRemove
)

func (a Action) String() string {
	switch a {
	case ActionGrant:
		return "grant_role"
	case ActionRevoke:
		return "revoke_role"
	case ActionRemove:
		return "remove_subject"
	default:
		return "unknown"
	}
}

// OutcomeFlags independently toggle each side effect.
type OutcomeFlags struct {
	GrantOnSuccess  bool
	RevokeOnSuccess bool
	RemoveOnFailure bool
	RemoveOnTimeout bool
}

// PlanSideEffects maps a terminal emission to the actions its flags enable,
// in execution order. Non-terminal emissions plan nothing.
func PlanSideEffects(kind EmissionKind, f OutcomeFlags) []Action {
	var out []Action
	switch kind {
	case EmitSuccess:
		if f.GrantOnSuccess {
			out = append(out, ActionGrant)
		}
		if f.RevokeOnSuccess {
			out = append(out, ActionRevoke)
		}
	case EmitFailure:
		if f.RemoveOnFailure {
			out = append(out, ActionRemove)
		}
	case EmitTimedOut:
		if f.RemoveOnTimeout {
			out = append(out, ActionRemove)
		}
	}
	return out
}
