package service

import (
	"context"
	"fmt"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
)

type UserService struct {
	users     *repository.UserRepository
	trialDays int
	now       func() time.Time
}

func NewUserService(users *repository.UserRepository, trialDays int) *UserService {
	return &UserService{users: users, trialDays: trialDays, now: time.Now}
}

func (s *UserService) Find(ctx context.Context, userID int64) (*models.User, error) {
	return s.users.FindByID(ctx, userID)
}

// Ensure loads the user, creating the row with a fresh trial window on
// first contact. The referrer identity is only honored at creation time
// and never when it points back at the user itself.
func (s *UserService) Ensure(ctx context.Context, userID int64, username, lang string, referrerID *int64) (*models.User, bool, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		return user, false, nil
	}

	if referrerID != nil && *referrerID == userID {
		referrerID = nil
	}
	trialUntil := s.now().UTC().AddDate(0, 0, s.trialDays)
	user = &models.User{
		ID:         userID,
		Username:   username,
		Language:   lang,
		TrialUntil: &trialUntil,
		ReferrerID: referrerID,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return user, true, nil
}

func (s *UserService) SetLanguage(ctx context.Context, userID int64, lang string) error {
	return s.users.SetLanguage(ctx, userID, lang)
}

func (s *UserService) TouchActivity(ctx context.Context, userID int64) error {
	return s.users.TouchActivity(ctx, userID, s.now().UTC())
}

func (s *UserService) AddBonusMessages(ctx context.Context, userID int64, count int) error {
	return s.users.AddBonusMessages(ctx, userID, count)
}

func (s *UserService) ExtendPremium(ctx context.Context, userID int64, days int) error {
	return s.users.ExtendPremium(ctx, userID, days, s.now().UTC())
}

func (s *UserService) RemovePremium(ctx context.Context, userID int64) error {
	return s.users.RemovePremium(ctx, userID)
}

func (s *UserService) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	return s.users.SetBlocked(ctx, userID, blocked)
}

func (s *UserService) ListIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func (s *UserService) ListInactive(ctx context.Context, days int) ([]models.User, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	return s.users.ListInactive(ctx, cutoff)
}
