package service

import (
	"context"
	"fmt"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/session"
)

// AccessService resolves a user's privilege tier at the moment of a
// request. Resolve is a pure read: the lazy trial closeout is a separate
// explicit step so the read path never mutates state.
type AccessService struct {
	users    *repository.UserRepository
	sessions *session.Manager
	now      func() time.Time
}

func NewAccessService(users *repository.UserRepository, sessions *session.Manager) *AccessService {
	return &AccessService{users: users, sessions: sessions, now: time.Now}
}

// Resolve returns exactly one tier, in priority order: paid subscription,
// live paid session, active trial, free. A nil user is free tier.
func (s *AccessService) Resolve(user *models.User) models.Tier {
	if user == nil {
		return models.TierFree
	}
	now := s.now()

	if user.IsPremium && user.PremiumUntil != nil && user.PremiumUntil.After(now) {
		return models.TierPremium
	}
	if s.sessions.HasTempPremium(user.ID) {
		return models.TierTempSession
	}
	if !user.TrialUsed && user.TrialUntil != nil && user.TrialUntil.After(now) {
		return models.TierTrial
	}
	return models.TierFree
}

// CloseTrialIfLapsed consumes the trial once its clock has run out.
// Callers invoke it at natural checkpoints (first contact, menu refresh);
// it is idempotent and a no-op while the trial is still running.
func (s *AccessService) CloseTrialIfLapsed(ctx context.Context, user *models.User) (bool, error) {
	if user == nil || user.TrialUsed || user.TrialUntil == nil {
		return false, nil
	}
	if user.TrialUntil.After(s.now()) {
		return false, nil
	}
	if err := s.users.EndTrial(ctx, user.ID); err != nil {
		return false, fmt.Errorf("close trial: %w", err)
	}
	user.TrialUsed = true
	return true, nil
}
