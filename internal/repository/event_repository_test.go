package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatsAggregation(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	events := NewEventRepository(db)
	referrals := NewReferralRepository(db)
	ctx := context.Background()

	seedUser(t, users, 1)
	seedUser(t, users, 2)
	require.NoError(t, users.ExtendPremium(ctx, 1, 30, time.Now().UTC()))

	require.NoError(t, events.Log(ctx, 1, "message_sent", "en"))
	require.NoError(t, events.Log(ctx, 2, "message_sent", "en"))
	require.NoError(t, events.Log(ctx, 1, "story_generated", "en"))

	require.NoError(t, referrals.Create(ctx, 1, 2))
	_, _, err := referrals.Convert(ctx, 2, 5, time.Now().UTC())
	require.NoError(t, err)

	stats, err := events.Stats(ctx, 1, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 1, stats.PeriodDays)
	require.Equal(t, 2, stats.NewUsers)
	require.Equal(t, 2, stats.TotalMessages)
	require.Equal(t, 2, stats.TotalUsers)
	require.Equal(t, 1, stats.PremiumUsers)
	require.Equal(t, 2, stats.Languages["en"])
	require.Equal(t, 1, stats.ReferralsTotal)
	require.Equal(t, 1, stats.ReferralsConverted)
}
