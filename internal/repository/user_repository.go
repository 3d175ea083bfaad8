package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `user_id, COALESCE(username, ''), language, premium_until, is_premium, trial_until, trial_used,
night_messages_count, COALESCE(last_night_date, ''), last_active, total_messages, referrer_id, referral_count,
bonus_messages, is_blocked, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var premiumUntil, trialUntil sql.NullTime
	var referrerID sql.NullInt64
	var isPremium, trialUsed, isBlocked int
	err := row.Scan(&u.ID, &u.Username, &u.Language, &premiumUntil, &isPremium, &trialUntil, &trialUsed,
		&u.NightMessages, &u.LastNightDate, &u.LastActive, &u.TotalMessages, &referrerID, &u.ReferralCount,
		&u.BonusMessages, &isBlocked, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if premiumUntil.Valid {
		t := premiumUntil.Time
		u.PremiumUntil = &t
	}
	if trialUntil.Valid {
		t := trialUntil.Time
		u.TrialUntil = &t
	}
	if referrerID.Valid {
		id := referrerID.Int64
		u.ReferrerID = &id
	}
	u.IsPremium = isPremium != 0
	u.TrialUsed = trialUsed != 0
	u.IsBlocked = isBlocked != 0
	return &u, nil
}

func (r *UserRepository) FindByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return user, nil
}

// Create inserts a fresh user row. The referrer id, when present, is set
// exactly once here and never updated afterwards.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	const query = `
INSERT INTO users (user_id, username, language, referrer_id, trial_until, last_active, created_at, updated_at)
VALUES (?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	var trialUntil any
	if user.TrialUntil != nil {
		trialUntil = *user.TrialUntil
	}
	var referrerID any
	if user.ReferrerID != nil {
		referrerID = *user.ReferrerID
	}
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.Language, referrerID, trialUntil, now, now, now); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.LastActive = now
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *UserRepository) SetLanguage(ctx context.Context, userID int64, lang string) error {
	const query = `UPDATE users SET language = ?, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, lang, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// TouchActivity bumps the activity timestamp and the lifetime message count.
func (r *UserRepository) TouchActivity(ctx context.Context, userID int64, now time.Time) error {
	const query = `UPDATE users SET last_active = ?, total_messages = total_messages + 1, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, now, now, userID); err != nil {
		return fmt.Errorf("touch activity: %w", err)
	}
	return nil
}

func (r *UserRepository) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	value := 0
	if blocked {
		value = 1
	}
	const query = `UPDATE users SET is_blocked = ?, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, value, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	return nil
}

// NightUsage rolls the daily counter over when the stored day tag differs
// from the given day, then reports the raw counter and the bonus balance.
// The reset is a single guarded UPDATE, so concurrent callers for the same
// identity cannot double-reset.
func (r *UserRepository) NightUsage(ctx context.Context, userID int64, day string) (count int, bonus int, err error) {
	const reset = `
UPDATE users SET night_messages_count = 0, last_night_date = ?, updated_at = ?
WHERE user_id = ? AND (last_night_date IS NULL OR last_night_date <> ?)`
	if _, err := r.db.ExecContext(ctx, reset, day, time.Now().UTC(), userID, day); err != nil {
		return 0, 0, fmt.Errorf("reset night counter: %w", err)
	}

	const query = `SELECT night_messages_count, bonus_messages FROM users WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	if err := row.Scan(&count, &bonus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("read night usage: %w", err)
	}
	return count, bonus, nil
}

func (r *UserRepository) IncrementNightCounter(ctx context.Context, userID int64) error {
	const query = `UPDATE users SET night_messages_count = night_messages_count + 1, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("increment night counter: %w", err)
	}
	return nil
}

func (r *UserRepository) AddBonusMessages(ctx context.Context, userID int64, count int) error {
	const query = `UPDATE users SET bonus_messages = bonus_messages + ?, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, count, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("add bonus messages: %w", err)
	}
	return nil
}

// EndTrial marks the one-time trial as consumed. The flag only ever moves
// from false to true, so repeated calls are harmless.
func (r *UserRepository) EndTrial(ctx context.Context, userID int64) error {
	const query = `UPDATE users SET trial_used = 1, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("end trial: %w", err)
	}
	return nil
}

// ExtendPremium grants days of subscription. An unexpired subscription is
// extended from its current expiry, an expired or absent one from now.
func (r *UserRepository) ExtendPremium(ctx context.Context, userID int64, days int, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var premiumUntil sql.NullTime
	row := tx.QueryRowContext(ctx, `SELECT premium_until FROM users WHERE user_id = ?`, userID)
	if err := row.Scan(&premiumUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d not found", userID)
		}
		return fmt.Errorf("read premium expiry: %w", err)
	}

	base := now
	if premiumUntil.Valid && premiumUntil.Time.After(now) {
		base = premiumUntil.Time
	}
	newExpiry := base.AddDate(0, 0, days)

	const query = `UPDATE users SET premium_until = ?, is_premium = 1, updated_at = ? WHERE user_id = ?`
	if _, err := tx.ExecContext(ctx, query, newExpiry, now, userID); err != nil {
		return fmt.Errorf("extend premium: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit premium tx: %w", err)
	}
	return nil
}

func (r *UserRepository) RemovePremium(ctx context.Context, userID int64) error {
	const query = `UPDATE users SET is_premium = 0, premium_until = NULL, updated_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, time.Now().UTC(), userID); err != nil {
		return fmt.Errorf("remove premium: %w", err)
	}
	return nil
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT user_id FROM users WHERE is_blocked = 0`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListInactive returns unblocked users whose last activity predates the cutoff.
func (r *UserRepository) ListInactive(ctx context.Context, before time.Time) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE last_active < ? AND is_blocked = 0`
	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("list inactive users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inactive user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}
