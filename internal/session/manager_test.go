package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/models"
)

func newTestManager(start time.Time) (*Manager, *time.Time) {
	clock := start
	m := NewManager(40*time.Minute, 10)
	m.now = func() time.Time { return clock }
	return m, &clock
}

func TestStartReplacesSilently(t *testing.T) {
	m, _ := newTestManager(time.Now())

	first := m.Start(1, models.KindChat, 10)
	second := m.Start(1, models.KindConfessional, 0)

	require.NotEqual(t, first.ID, second.ID)
	got, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, second.ID, got.ID)
	require.True(t, got.Confessional())
}

func TestExpiryAtFixedDuration(t *testing.T) {
	m, clock := newTestManager(time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC))
	s := m.Start(1, models.KindChat, 1)

	*clock = clock.Add(39 * time.Minute)
	require.False(t, m.Expired(s))

	*clock = clock.Add(time.Minute)
	require.True(t, m.Expired(s))

	// Expired sessions stay visible until a caller ends them.
	_, ok := m.Get(1)
	require.True(t, ok)
}

func TestTempPremiumRespectsExpiry(t *testing.T) {
	m, clock := newTestManager(time.Date(2026, 8, 28, 1, 0, 0, 0, time.UTC))
	m.Start(1, models.KindTempPremium, 2)

	require.True(t, m.HasTempPremium(1))
	require.False(t, m.HasTempPremium(2))

	*clock = clock.Add(41 * time.Minute)
	require.False(t, m.HasTempPremium(1))
}

func TestAppendTurnTrimsToDepth(t *testing.T) {
	m, _ := newTestManager(time.Now())
	m.Start(1, models.KindChat, 1)

	for i := 0; i < 15; i++ {
		m.AppendTurn(1, RoleUser, "msg")
	}
	turns := m.Turns(1)
	require.Len(t, turns, 10)
}

func TestTurnsReturnsCopy(t *testing.T) {
	m, _ := newTestManager(time.Now())
	m.Start(1, models.KindChat, 1)
	m.AppendTurn(1, RoleUser, "hello")

	turns := m.Turns(1)
	turns[0].Content = "mutated"

	require.Equal(t, "hello", m.Turns(1)[0].Content)
}

func TestEndMovesMessageIDsOutOnce(t *testing.T) {
	m, _ := newTestManager(time.Now())
	m.Start(1, models.KindConfessional, 0)
	m.RecordMessageID(1, 100)
	m.RecordMessageID(1, 101)

	s, ok := m.End(1)
	require.True(t, ok)
	require.Equal(t, []int{100, 101}, s.MessageIDs())

	_, ok = m.End(1)
	require.False(t, ok)
	_, ok = m.Get(1)
	require.False(t, ok)
}

func TestRecordMessageIDIgnoredOutsideConfessional(t *testing.T) {
	m, _ := newTestManager(time.Now())
	m.Start(1, models.KindChat, 1)
	m.RecordMessageID(1, 100)

	s, ok := m.End(1)
	require.True(t, ok)
	require.Empty(t, s.MessageIDs())
}
