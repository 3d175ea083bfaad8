package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/repository"
)

func TestParseStartParam(t *testing.T) {
	tests := []struct {
		param string
		want  *int64
	}{
		{"ref123", ptr(int64(123))},
		{"  ref123  ", ptr(int64(123))},
		{"ref0", nil},
		{"refabc", nil},
		{"123", nil},
		{"", nil},
		{"promo50", nil},
	}
	for _, tt := range tests {
		got := ParseStartParam(tt.param)
		if tt.want == nil {
			require.Nil(t, got, "param %q", tt.param)
		} else {
			require.NotNil(t, got, "param %q", tt.param)
			require.Equal(t, *tt.want, *got)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestReferralLink(t *testing.T) {
	svc := NewReferralService(nil, nil, "night_whisper_bot", 5)
	require.Equal(t, "https://t.me/night_whisper_bot?start=ref42", svc.Link(42))
}

func TestSignupThenConversion(t *testing.T) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	referrals := repository.NewReferralRepository(db)
	ctx := context.Background()

	seedUser(t, users, 1, nil)
	seedUser(t, users, 2, nil)

	svc := NewReferralService(referrals, users, "night_whisper_bot", 5)

	require.NoError(t, svc.RegisterSignup(ctx, 1, 2))

	referrer, err := users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 5, referrer.BonusMessages)
	require.Zero(t, referrer.ReferralCount)

	referrerID, converted, err := svc.Convert(ctx, 2)
	require.NoError(t, err)
	require.True(t, converted)
	require.Equal(t, int64(1), referrerID)

	referrer, err = users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 10, referrer.BonusMessages)
	require.Equal(t, 1, referrer.ReferralCount)
}

func TestEnsureDropsSelfReferral(t *testing.T) {
	users := repository.NewUserRepository(newTestDB(t))
	svc := NewUserService(users, 3)
	ctx := context.Background()

	self := int64(7)
	user, created, err := svc.Ensure(ctx, 7, "loner", "en", &self)
	require.NoError(t, err)
	require.True(t, created)
	require.Nil(t, user.ReferrerID)
}

func TestEnsureGrantsTrialOnce(t *testing.T) {
	users := repository.NewUserRepository(newTestDB(t))
	svc := NewUserService(users, 3)
	svc.now = func() time.Time { return time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	user, created, err := svc.Ensure(ctx, 1, "tester", "en", nil)
	require.NoError(t, err)
	require.True(t, created)
	require.NotNil(t, user.TrialUntil)
	require.Equal(t, time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC), user.TrialUntil.UTC())

	again, created, err := svc.Ensure(ctx, 1, "tester", "en", nil)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, user.ID, again.ID)
}
