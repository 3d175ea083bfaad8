package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/velvetlab/nightwhisper/internal/models"
)

type ReferralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Create records a pending referral edge. The UNIQUE constraint on
// referred_id guarantees at most one edge per referred identity.
func (r *ReferralRepository) Create(ctx context.Context, referrerID, referredID int64) error {
	const query = `INSERT INTO referrals (referrer_id, referred_id) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, referrerID, referredID); err != nil {
		return fmt.Errorf("insert referral: %w", err)
	}
	return nil
}

// Convert flips a pending edge to converted and credits the referrer, all
// in one transaction. The status guard in the UPDATE makes the transition
// fire at most once per referred identity: a second purchase affects no
// rows and returns (0, false, nil).
func (r *ReferralRepository) Convert(ctx context.Context, referredID int64, bonus int, now time.Time) (referrerID int64, converted bool, err error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT referrer_id FROM referrals WHERE referred_id = ? AND status = 'pending'`, referredID)
	if err := row.Scan(&referrerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find pending referral: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
UPDATE referrals SET status = 'converted', converted_at = ?, bonus_given = 1
WHERE referred_id = ? AND status = 'pending'`, now, referredID)
	if err != nil {
		return 0, false, fmt.Errorf("convert referral: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("convert rows affected: %w", err)
	}
	if affected == 0 {
		return 0, false, nil
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE users SET referral_count = referral_count + 1, bonus_messages = bonus_messages + ?, updated_at = ?
WHERE user_id = ?`, bonus, now, referrerID); err != nil {
		return 0, false, fmt.Errorf("credit referrer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit referral tx: %w", err)
	}
	return referrerID, true, nil
}

func (r *ReferralRepository) StatsForReferrer(ctx context.Context, referrerID int64) (models.ReferralStats, error) {
	const query = `
SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'converted' THEN 1 ELSE 0 END), 0)
FROM referrals WHERE referrer_id = ?`
	row := r.db.QueryRowContext(ctx, query, referrerID)
	var stats models.ReferralStats
	if err := row.Scan(&stats.Total, &stats.Converted); err != nil {
		return models.ReferralStats{}, fmt.Errorf("referral stats: %w", err)
	}
	return stats, nil
}
