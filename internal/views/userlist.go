// Package views holds request-scoped view state for the member and admin
// pages. Mutations are applied to the view first and rolled back if the
// data store rejects them.
package views

import (
	"context"
	"sort"

	"github.com/EmpoweredVote/collective-backend/internal/approval"
	"github.com/EmpoweredVote/collective-backend/internal/store"
)

// Mutator performs an approval action against the data store.
type Mutator interface {
	Apply(ctx context.Context, actor store.Profile, targetID string, a approval.Action) (store.Profile, error)
}

// UserList is the admin view: profiles awaiting approval (oldest first) and
// every profile (newest first).
type UserList struct {
	Pending []store.Profile `json:"pending"`
	All     []store.Profile `json:"all"`
}

func (l *UserList) PendingCount() int { return len(l.Pending) }

func (l *UserList) clone() UserList {
	return UserList{
		Pending: append([]store.Profile(nil), l.Pending...),
		All:     append([]store.Profile(nil), l.All...),
	}
}

func (l *UserList) find(id string) (store.Profile, bool) {
	for _, p := range l.All {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range l.Pending {
		if p.ID == id {
			return p, true
		}
	}
	return store.Profile{}, false
}

// place writes p into both lists, keeping Pending equal to the unapproved
// profiles in creation order.
func (l *UserList) place(p store.Profile) {
	for i := range l.All {
		if l.All[i].ID == p.ID {
			l.All[i] = p
			break
		}
	}

	idx := -1
	for i := range l.Pending {
		if l.Pending[i].ID == p.ID {
			idx = i
			break
		}
	}
	switch {
	case p.Approved && idx >= 0:
		l.Pending = append(l.Pending[:idx], l.Pending[idx+1:]...)
	case !p.Approved && idx >= 0:
		l.Pending[idx] = p
	case !p.Approved:
		l.Pending = append(l.Pending, p)
		sort.SliceStable(l.Pending, func(i, j int) bool {
			return l.Pending[i].CreatedAt.Before(l.Pending[j].CreatedAt)
		})
	}
}

func optimistic(p store.Profile, a approval.Action) store.Profile {
	switch a {
	case approval.ActionApprove:
		p.Approved = true
	case approval.ActionRevoke:
		p.Approved = false
	case approval.ActionGrantAdmin:
		p.IsAdmin = true
	case approval.ActionRemoveAdmin:
		p.IsAdmin = false
	}
	return p
}

// Apply shows the action immediately, submits it once, and restores the
// previous lists if the submission fails.
func (l *UserList) Apply(ctx context.Context, m Mutator, actor store.Profile, targetID string, a approval.Action) error {
	snapshot := *l
	working := l.clone()
	if current, ok := working.find(targetID); ok {
		working.place(optimistic(current, a))
	}
	*l = working

	updated, err := m.Apply(ctx, actor, targetID, a)
	if err != nil {
		*l = snapshot
		return err
	}
	l.place(updated)
	return nil
}
