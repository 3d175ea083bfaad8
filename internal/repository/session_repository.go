package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionRepository keeps the durable log of non-confessional sessions.
// The authoritative in-flight state lives in memory; this table exists for
// conversation attribution and reporting only.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Start(ctx context.Context, userID int64, confessional bool, now time.Time) (int64, error) {
	flag := 0
	if confessional {
		flag = 1
	}
	const query = `INSERT INTO sessions (user_id, start_time, is_confessional) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, userID, now, flag)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session last insert id: %w", err)
	}
	return id, nil
}

func (r *SessionRepository) End(ctx context.Context, sessionID int64, now time.Time) error {
	const query = `UPDATE sessions SET is_active = 0, end_time = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, now, sessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
