// Package approval holds the membership lifecycle: whether a profile may see
// member content, and whether it may manage other profiles.
package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/looplab/fsm"
)

type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRevoked  State = "revoked"
)

type Action string

const (
	ActionApprove     Action = "approve"
	ActionRevoke      Action = "revoke"
	ActionGrantAdmin  Action = "grant-admin"
	ActionRemoveAdmin Action = "remove-admin"
)

const (
	roleMember = "member"
	roleAdmin  = "admin"
)

var (
	ErrUnknownAction        = errors.New("unknown approval action")
	ErrNotAdmin             = errors.New("admin access required")
	ErrConfirmationRequired = errors.New("confirmation required")
)

func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionApprove, ActionRevoke, ActionGrantAdmin, ActionRemoveAdmin:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// RequiresConfirmation reports whether the action must be confirmed before
// it is submitted.
func (a Action) RequiresConfirmation() bool {
	return a == ActionRevoke || a == ActionGrantAdmin || a == ActionRemoveAdmin
}

// Prompt is the confirmation question shown for the action.
func (a Action) Prompt(name string) string {
	switch a {
	case ActionRevoke:
		return fmt.Sprintf("Are you sure you want to revoke access for %s? They will no longer be able to access the platform.", name)
	case ActionRemoveAdmin:
		return fmt.Sprintf("Are you sure you want to remove admin privileges from %s?", name)
	case ActionGrantAdmin:
		return fmt.Sprintf("Are you sure you want to grant admin privileges to %s?", name)
	}
	return ""
}

// StateOf derives the approval state from the stored flags. Revoked differs
// from Pending only in having been approved before.
func StateOf(p store.Profile) State {
	switch {
	case p.Approved:
		return StateApproved
	case p.RevokedAt != nil:
		return StateRevoked
	default:
		return StatePending
	}
}

func newApprovalMachine(initial State) *fsm.FSM {
	return fsm.NewFSM(
		string(initial),
		fsm.Events{
			{Name: string(ActionApprove), Src: []string{string(StatePending), string(StateRevoked), string(StateApproved)}, Dst: string(StateApproved)},
			{Name: string(ActionRevoke), Src: []string{string(StateApproved)}, Dst: string(StateRevoked)},
		},
		fsm.Callbacks{},
	)
}

func newRoleMachine(isAdmin bool) *fsm.FSM {
	initial := roleMember
	if isAdmin {
		initial = roleAdmin
	}
	return fsm.NewFSM(
		initial,
		fsm.Events{
			{Name: string(ActionGrantAdmin), Src: []string{roleMember, roleAdmin}, Dst: roleAdmin},
			{Name: string(ActionRemoveAdmin), Src: []string{roleAdmin, roleMember}, Dst: roleMember},
		},
		fsm.Callbacks{},
	)
}

// Plan returns the write that applies a to p. Actions that leave the state
// where it is still produce a write of the unchanged flag.
func Plan(ctx context.Context, p store.Profile, a Action, now time.Time) (store.ProfilePatch, error) {
	switch a {
	case ActionApprove, ActionRevoke:
		return planApproval(ctx, p, a, now)
	case ActionGrantAdmin, ActionRemoveAdmin:
		sm := newRoleMachine(p.IsAdmin)
		if err := sm.Event(ctx, string(a)); err != nil && !isNoop(err) {
			return store.ProfilePatch{}, err
		}
		return store.ProfilePatch{IsAdmin: store.Bool(sm.Current() == roleAdmin)}, nil
	}
	return store.ProfilePatch{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
}

func planApproval(ctx context.Context, p store.Profile, a Action, now time.Time) (store.ProfilePatch, error) {
	sm := newApprovalMachine(StateOf(p))
	err := sm.Event(ctx, string(a))
	if err != nil && !isNoop(err) {
		return store.ProfilePatch{}, err
	}

	patch := store.ProfilePatch{Approved: store.Bool(State(sm.Current()) == StateApproved)}
	if err != nil {
		return patch, nil
	}
	switch State(sm.Current()) {
	case StateApproved:
		patch.ApprovedAt = &now
	case StateRevoked:
		patch.RevokedAt = &now
	}
	return patch, nil
}

// isNoop reports transitions that are allowed but change nothing: approving an
// approved profile, revoking one that was never approved.
func isNoop(err error) bool {
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return true
	}
	var invalid fsm.InvalidEventError
	return errors.As(err, &invalid)
}
