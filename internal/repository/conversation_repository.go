package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Add persists one conversation turn. Confessional turns are never written
// here; the caller enforces that.
func (r *ConversationRepository) Add(ctx context.Context, userID, sessionID int64, content string, isUser bool) error {
	flag := 0
	if isUser {
		flag = 1
	}
	const query = `INSERT INTO conversations (user_id, session_id, content, is_user, timestamp) VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, sessionID, content, flag, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert conversation turn: %w", err)
	}
	return nil
}
