package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/velvetlab/nightwhisper/internal/repository"
)

var ErrLimitReached = errors.New("free tier limit reached")

// QuotaService tracks the three independently-resetting daily allowances
// of the free tier: general messages, one confessional session, one sleep
// story. Calendar days are UTC. The message counter and the bonus balance
// live in the user row; the story/confession flags are in-memory only and
// roll over implicitly through the day key.
type QuotaService struct {
	users      *repository.UserRepository
	messageCap int
	now        func() time.Time

	mu    sync.Mutex
	flags map[int64]*dayFlags
}

type dayFlags struct {
	day            string
	storyUsed      bool
	confessionUsed bool
}

func NewQuotaService(users *repository.UserRepository, messageCap int) *QuotaService {
	return &QuotaService{
		users:      users,
		messageCap: messageCap,
		now:        time.Now,
		flags:      make(map[int64]*dayFlags),
	}
}

// Day returns the current quota day tag.
func (s *QuotaService) Day() string {
	return s.now().UTC().Format("2006-01-02")
}

// MessagesRemaining reports how many free general messages are left today.
// The effective used count is counter minus bonus balance, uncapped: a
// bonus larger than the counter yields extra headroom rather than being
// clamped at zero, matching the observed comparison counter-bonus < cap.
func (s *QuotaService) MessagesRemaining(ctx context.Context, userID int64) (int, error) {
	count, bonus, err := s.users.NightUsage(ctx, userID, s.Day())
	if err != nil {
		return 0, err
	}
	remaining := s.messageCap - (count - bonus)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// ConsumeMessage admits one general message for a free-tier user, or
// returns ErrLimitReached. Privileged tiers must not call this; they
// bypass counting entirely.
func (s *QuotaService) ConsumeMessage(ctx context.Context, userID int64) error {
	count, bonus, err := s.users.NightUsage(ctx, userID, s.Day())
	if err != nil {
		return err
	}
	if count-bonus >= s.messageCap {
		return ErrLimitReached
	}
	return s.users.IncrementNightCounter(ctx, userID)
}

// StoryAvailable reports whether today's single free story is still
// unused. The flag is only set by ConsumeStory after a story was actually
// delivered, so a failed generation never burns the allowance.
func (s *QuotaService) StoryAvailable(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.todayFlags(userID).storyUsed
}

// ConsumeStory admits today's single free story, or ErrLimitReached.
func (s *QuotaService) ConsumeStory(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.todayFlags(userID)
	if f.storyUsed {
		return ErrLimitReached
	}
	f.storyUsed = true
	return nil
}

// ConsumeConfession admits today's single free confessional session.
func (s *QuotaService) ConsumeConfession(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.todayFlags(userID)
	if f.confessionUsed {
		return ErrLimitReached
	}
	f.confessionUsed = true
	return nil
}

func (s *QuotaService) todayFlags(userID int64) *dayFlags {
	day := s.Day()
	f, ok := s.flags[userID]
	if !ok || f.day != day {
		f = &dayFlags{day: day}
		s.flags[userID] = f
	}
	return f
}
