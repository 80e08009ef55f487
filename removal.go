package goCaptcha

import "context"

// RoleState reports whether a subject currently holds the roles the engine
// grants and revokes.
type RoleState interface {
	HasSuccessRole(ctx context.Context, subjectID string) (bool, error)
	HasPendingRole(ctx context.Context, subjectID string) (bool, error)
}

// RoleRemovalGate is a [RemovalGate] that keeps subjects out of removal
// depending on the roles they hold when the session fails or times out.
//
// Subjects that already hold the success role (granted elsewhere in the
// meantime) are spared unless RemoveIfSuccessRoleHeld is set. With
// RemoveIfPendingRoleHeld set, only subjects still holding the pending role
// are removed. A nil State allows every removal.
type RoleRemovalGate struct {
	State                   RoleState
	RemoveIfSuccessRoleHeld bool
	RemoveIfPendingRoleHeld bool
}

func (g RoleRemovalGate) AllowRemoval(ctx context.Context, subjectID string, _ OutcomeKind) (bool, error) {
	if g.State == nil {
		return true, nil
	}

	if !g.RemoveIfSuccessRoleHeld {
		held, err := g.State.HasSuccessRole(ctx, subjectID)
		if err != nil {
			return false, err
		}
		if held {
			return false, nil
		}
	}

	if g.RemoveIfPendingRoleHeld {
		held, err := g.State.HasPendingRole(ctx, subjectID)
		if err != nil {
			return false, err
		}
		return held, nil
	}

	return true, nil
}
