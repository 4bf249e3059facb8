package approval

import (
	"context"
	"log"
	"time"

	"github.com/EmpoweredVote/collective-backend/internal/store"
)

// Service applies approval actions on behalf of an admin. Each call is a
// single attempt; failures are returned as-is.
type Service struct {
	Profiles store.Profiles
	Now      func() time.Time
}

func NewService(profiles store.Profiles) *Service {
	return &Service{Profiles: profiles, Now: time.Now}
}

func (s *Service) Apply(ctx context.Context, actor store.Profile, targetID string, a Action) (store.Profile, error) {
	if !actor.IsAdmin {
		return store.Profile{}, ErrNotAdmin
	}

	target, err := s.Profiles.GetProfile(ctx, targetID)
	if err != nil {
		return store.Profile{}, err
	}

	patch, err := Plan(ctx, target, a, s.Now())
	if err != nil {
		return store.Profile{}, err
	}

	updated, err := s.Profiles.UpdateProfile(ctx, targetID, patch)
	if err != nil {
		log.Printf("[approval] %s on %s by %s failed: %v", a, targetID, actor.ID, err)
		return store.Profile{}, err
	}

	log.Printf("[approval] %s on %s by %s: %s -> %s admin=%v",
		a, targetID, actor.ID, StateOf(target), StateOf(updated), updated.IsAdmin)
	return updated, nil
}
