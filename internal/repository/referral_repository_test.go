package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConvertFiresAtMostOnce(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	referrals := NewReferralRepository(db)
	ctx := context.Background()

	seedUser(t, users, 1)
	seedUser(t, users, 2)
	require.NoError(t, referrals.Create(ctx, 1, 2))

	now := time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
	referrerID, converted, err := referrals.Convert(ctx, 2, 5, now)
	require.NoError(t, err)
	require.True(t, converted)
	require.Equal(t, int64(1), referrerID)

	referrer, err := users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, referrer.ReferralCount)
	require.Equal(t, 5, referrer.BonusMessages)

	// The second purchase of the same referred user credits nothing.
	referrerID, converted, err = referrals.Convert(ctx, 2, 5, now)
	require.NoError(t, err)
	require.False(t, converted)
	require.Zero(t, referrerID)

	referrer, err = users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, referrer.ReferralCount)
	require.Equal(t, 5, referrer.BonusMessages)
}

func TestConvertWithoutEdge(t *testing.T) {
	db := newTestDB(t)
	referrals := NewReferralRepository(db)

	referrerID, converted, err := referrals.Convert(context.Background(), 7, 5, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, converted)
	require.Zero(t, referrerID)
}

func TestCreateRejectsSecondReferrer(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	referrals := NewReferralRepository(db)
	ctx := context.Background()

	seedUser(t, users, 1)
	seedUser(t, users, 2)
	seedUser(t, users, 3)

	require.NoError(t, referrals.Create(ctx, 1, 3))
	require.Error(t, referrals.Create(ctx, 2, 3))
}

func TestStatsForReferrer(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	referrals := NewReferralRepository(db)
	ctx := context.Background()

	seedUser(t, users, 1)
	seedUser(t, users, 2)
	seedUser(t, users, 3)

	require.NoError(t, referrals.Create(ctx, 1, 2))
	require.NoError(t, referrals.Create(ctx, 1, 3))
	_, _, err := referrals.Convert(ctx, 2, 5, time.Now().UTC())
	require.NoError(t, err)

	stats, err := referrals.StatsForReferrer(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Converted)
}
