package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Log(ctx context.Context, userID int64, eventType, data string) error {
	const query = `INSERT INTO analytics_events (user_id, event_type, event_data, timestamp) VALUES (?, ?, NULLIF(?, ''), ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, eventType, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Stats aggregates the reporting counters the admin API exposes.
func (r *EventRepository) Stats(ctx context.Context, days int, now time.Time) (models.Stats, error) {
	since := now.AddDate(0, 0, -days)
	stats := models.Stats{PeriodDays: days, Languages: map[string]int{}}

	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE created_at > ?`, since)
	if err := row.Scan(&stats.NewUsers); err != nil {
		return stats, fmt.Errorf("count new users: %w", err)
	}

	row = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics_events WHERE event_type = 'message_sent' AND timestamp > ?`, since)
	if err := row.Scan(&stats.TotalMessages); err != nil {
		return stats, fmt.Errorf("count messages: %w", err)
	}

	row = r.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_premium = 1 THEN 1 ELSE 0 END), 0) FROM users`)
	if err := row.Scan(&stats.TotalUsers, &stats.PremiumUsers); err != nil {
		return stats, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT language, COUNT(*) FROM users GROUP BY language`)
	if err != nil {
		return stats, fmt.Errorf("count languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var count int
		if err := rows.Scan(&lang, &count); err != nil {
			return stats, fmt.Errorf("scan language count: %w", err)
		}
		stats.Languages[lang] = count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}

	row = r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'converted' THEN 1 ELSE 0 END), 0)
FROM referrals WHERE created_at > ?`, since)
	if err := row.Scan(&stats.ReferralsTotal, &stats.ReferralsConverted); err != nil {
		return stats, fmt.Errorf("count referrals: %w", err)
	}

	return stats, nil
}
