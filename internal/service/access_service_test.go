package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/session"
)

func TestResolveTierPriority(t *testing.T) {
	now := time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name        string
		user        *models.User
		tempPremium bool
		want        models.Tier
	}{
		{
			name: "nil user is free",
			user: nil,
			want: models.TierFree,
		},
		{
			name: "active subscription wins over everything",
			user: &models.User{ID: 1, IsPremium: true, PremiumUntil: &future, TrialUntil: &future},
			tempPremium: true,
			want:        models.TierPremium,
		},
		{
			name:        "live paid session beats trial",
			user:        &models.User{ID: 1, TrialUntil: &future},
			tempPremium: true,
			want:        models.TierTempSession,
		},
		{
			name: "expired subscription falls through to trial",
			user: &models.User{ID: 1, IsPremium: true, PremiumUntil: &past, TrialUntil: &future},
			want: models.TierTrial,
		},
		{
			name: "consumed trial is free even before expiry",
			user: &models.User{ID: 1, TrialUsed: true, TrialUntil: &future},
			want: models.TierFree,
		},
		{
			name: "lapsed trial is free",
			user: &models.User{ID: 1, TrialUntil: &past},
			want: models.TierFree,
		},
		{
			name: "premium flag without expiry is free",
			user: &models.User{ID: 1, IsPremium: true},
			want: models.TierFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := session.NewManager(40*time.Minute, 10)
			if tt.tempPremium {
				sessions.Start(1, models.KindTempPremium, 0)
			}
			access := NewAccessService(nil, sessions)
			access.now = func() time.Time { return now }

			require.Equal(t, tt.want, access.Resolve(tt.user))
		})
	}
}

func TestCloseTrialIfLapsed(t *testing.T) {
	users := repository.NewUserRepository(newTestDB(t))
	sessions := session.NewManager(40*time.Minute, 10)
	ctx := context.Background()

	trialUntil := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	seedUser(t, users, 1, &trialUntil)

	access := NewAccessService(users, sessions)
	access.now = func() time.Time { return time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC) }

	user, err := users.FindByID(ctx, 1)
	require.NoError(t, err)

	closed, err := access.CloseTrialIfLapsed(ctx, user)
	require.NoError(t, err)
	require.True(t, closed)
	require.True(t, user.TrialUsed)

	stored, err := users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.True(t, stored.TrialUsed)

	// The closeout only fires once.
	closed, err = access.CloseTrialIfLapsed(ctx, user)
	require.NoError(t, err)
	require.False(t, closed)
}

func TestCloseTrialStillRunning(t *testing.T) {
	users := repository.NewUserRepository(newTestDB(t))
	sessions := session.NewManager(40*time.Minute, 10)
	ctx := context.Background()

	trialUntil := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	seedUser(t, users, 1, &trialUntil)

	access := NewAccessService(users, sessions)
	access.now = func() time.Time { return time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC) }

	user, err := users.FindByID(ctx, 1)
	require.NoError(t, err)

	closed, err := access.CloseTrialIfLapsed(ctx, user)
	require.NoError(t, err)
	require.False(t, closed)
	require.False(t, user.TrialUsed)
	require.Equal(t, models.TierTrial, access.Resolve(user))
}
