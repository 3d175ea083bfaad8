package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
)

// ReferralService manages the referral program: deep-link parsing, the
// pending edge written at signup with its immediate bonus, and the
// one-time conversion fired by the referred user's first paid purchase.
type ReferralService struct {
	referrals   *repository.ReferralRepository
	users       *repository.UserRepository
	botUsername string
	bonus       int
	now         func() time.Time
}

func NewReferralService(referrals *repository.ReferralRepository, users *repository.UserRepository, botUsername string, bonus int) *ReferralService {
	return &ReferralService{
		referrals:   referrals,
		users:       users,
		botUsername: botUsername,
		bonus:       bonus,
		now:         time.Now,
	}
}

// ParseStartParam extracts the referrer identity from a /start deep-link
// parameter of the form "ref<id>". Returns nil for anything else.
func ParseStartParam(param string) *int64 {
	param = strings.TrimSpace(param)
	if !strings.HasPrefix(param, "ref") {
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(param, "ref"), 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	return &id
}

// Link builds the personal invite deep link.
func (s *ReferralService) Link(userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref%d", s.botUsername, userID)
}

// RegisterSignup records the pending edge and grants the signup bonus to
// the referrer. Self-referrals are rejected by the caller before the user
// row is created, so the invariant referrer != self already holds here.
func (s *ReferralService) RegisterSignup(ctx context.Context, referrerID, referredID int64) error {
	if err := s.referrals.Create(ctx, referrerID, referredID); err != nil {
		return fmt.Errorf("register referral: %w", err)
	}
	if err := s.users.AddBonusMessages(ctx, referrerID, s.bonus); err != nil {
		return fmt.Errorf("signup bonus: %w", err)
	}
	return nil
}

// Convert fires the pending-to-converted transition for a referred user's
// first paid purchase and credits the referrer once. Subsequent purchases
// return converted=false.
func (s *ReferralService) Convert(ctx context.Context, referredID int64) (int64, bool, error) {
	return s.referrals.Convert(ctx, referredID, s.bonus, s.now().UTC())
}

func (s *ReferralService) Stats(ctx context.Context, userID int64) (models.ReferralStats, error) {
	return s.referrals.StatsForReferrer(ctx, userID)
}

func (s *ReferralService) Bonus() int {
	return s.bonus
}
