package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/repository"
)

func newQuotaFixture(t *testing.T, start time.Time) (*QuotaService, *time.Time) {
	users := repository.NewUserRepository(newTestDB(t))
	seedUser(t, users, 1, nil)

	clock := start
	q := NewQuotaService(users, 3)
	q.now = func() time.Time { return clock }
	return q, &clock
}

func TestConsumeMessageCapThenReject(t *testing.T) {
	q, _ := newQuotaFixture(t, time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.ConsumeMessage(ctx, 1))
	}
	require.ErrorIs(t, q.ConsumeMessage(ctx, 1), ErrLimitReached)

	remaining, err := q.MessagesRemaining(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, remaining)
}

func TestConsumeMessageRollsOverAtMidnightUTC(t *testing.T) {
	q, clock := newQuotaFixture(t, time.Date(2026, 8, 28, 23, 50, 0, 0, time.UTC))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.ConsumeMessage(ctx, 1))
	}
	require.ErrorIs(t, q.ConsumeMessage(ctx, 1), ErrLimitReached)

	*clock = clock.Add(20 * time.Minute)
	require.NoError(t, q.ConsumeMessage(ctx, 1))

	remaining, err := q.MessagesRemaining(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, remaining)
}

func TestBonusMessagesExtendAllowance(t *testing.T) {
	users := repository.NewUserRepository(newTestDB(t))
	seedUser(t, users, 1, nil)
	ctx := context.Background()

	require.NoError(t, users.AddBonusMessages(ctx, 1, 5))

	q := NewQuotaService(users, 3)
	q.now = func() time.Time { return time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC) }

	// Bonus balance raises the effective allowance above the cap.
	for i := 0; i < 8; i++ {
		require.NoError(t, q.ConsumeMessage(ctx, 1))
	}
	require.ErrorIs(t, q.ConsumeMessage(ctx, 1), ErrLimitReached)
}

func TestStoryAvailabilityDoesNotConsume(t *testing.T) {
	q, _ := newQuotaFixture(t, time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC))

	// Checking availability (as the caller does before generating) must
	// leave the allowance intact, so a failed generation can be retried.
	require.True(t, q.StoryAvailable(1))
	require.True(t, q.StoryAvailable(1))

	require.NoError(t, q.ConsumeStory(1))
	require.False(t, q.StoryAvailable(1))
	require.ErrorIs(t, q.ConsumeStory(1), ErrLimitReached)
}

func TestStoryOncePerNight(t *testing.T) {
	q, clock := newQuotaFixture(t, time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC))

	require.NoError(t, q.ConsumeStory(1))
	require.ErrorIs(t, q.ConsumeStory(1), ErrLimitReached)

	// Other allowances are untouched.
	require.NoError(t, q.ConsumeConfession(1))

	*clock = clock.Add(2 * time.Hour)
	require.NoError(t, q.ConsumeStory(1))
}

func TestConfessionOncePerNight(t *testing.T) {
	q, _ := newQuotaFixture(t, time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC))

	require.NoError(t, q.ConsumeConfession(1))
	require.ErrorIs(t, q.ConsumeConfession(1), ErrLimitReached)
	require.NoError(t, q.ConsumeConfession(2))
}
