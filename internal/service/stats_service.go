package service

import (
	"context"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
)

type StatsService struct {
	events *repository.EventRepository
	now    func() time.Time
}

func NewStatsService(events *repository.EventRepository) *StatsService {
	return &StatsService{events: events, now: time.Now}
}

func (s *StatsService) Report(ctx context.Context, days int) (models.Stats, error) {
	return s.events.Stats(ctx, days, s.now().UTC())
}

func (s *StatsService) LogEvent(ctx context.Context, userID int64, eventType, data string) error {
	return s.events.Log(ctx, userID, eventType, data)
}
