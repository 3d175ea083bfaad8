package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velvetlab/nightwhisper/internal/config"
	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/session"
)

func newPaymentFixture(t *testing.T, now time.Time) (*PaymentService, *repository.UserRepository, *session.Manager) {
	db := newTestDB(t)
	users := repository.NewUserRepository(db)
	payments := repository.NewPaymentRepository(db)
	sessionsRepo := repository.NewSessionRepository(db)
	referrals := repository.NewReferralRepository(db)
	events := repository.NewEventRepository(db)
	sessions := session.NewManager(40*time.Minute, 10)

	seedUser(t, users, 1, nil)

	cfg := config.Config{
		PremiumDays:       30,
		PremiumPriceStars: 150,
		SessionPriceStars: 50,
	}
	referralSvc := NewReferralService(referrals, users, "night_whisper_bot", 5)
	svc := NewPaymentService(cfg, payments, users, sessionsRepo, sessions, referralSvc, events)
	svc.now = func() time.Time { return now }
	return svc, users, sessions
}

func TestSuccessfulPaymentGrantsPremiumOnce(t *testing.T) {
	now := time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC)
	svc, users, _ := newPaymentFixture(t, now)
	ctx := context.Background()

	user, err := users.FindByID(ctx, 1)
	require.NoError(t, err)

	payment := &tgbotapi.SuccessfulPayment{
		Currency:                "XTR",
		TotalAmount:             150,
		InvoicePayload:          models.PayloadPremiumMonth,
		TelegramPaymentChargeID: "charge-1",
	}

	result, err := svc.HandleSuccessfulPayment(ctx, user, payment)
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.Equal(t, models.PayloadPremiumMonth, result.Payload)

	stored, err := users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.True(t, stored.IsPremium)
	require.WithinDuration(t, now.AddDate(0, 0, 30), *stored.PremiumUntil, time.Second)

	// A redelivered update with the same charge id grants nothing more.
	result, err = svc.HandleSuccessfulPayment(ctx, user, payment)
	require.NoError(t, err)
	require.True(t, result.Duplicate)
	require.Equal(t, models.PayloadPremiumMonth, result.Payload)

	stored, err = users.FindByID(ctx, 1)
	require.NoError(t, err)
	require.WithinDuration(t, now.AddDate(0, 0, 30), *stored.PremiumUntil, time.Second)
}

func TestSuccessfulPaymentDeepSessionDedupe(t *testing.T) {
	now := time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC)
	svc, users, sessions := newPaymentFixture(t, now)
	ctx := context.Background()

	user, err := users.FindByID(ctx, 1)
	require.NoError(t, err)

	payment := &tgbotapi.SuccessfulPayment{
		Currency:                "XTR",
		TotalAmount:             50,
		InvoicePayload:          models.PayloadDeepSession,
		TelegramPaymentChargeID: "charge-2",
	}

	result, err := svc.HandleSuccessfulPayment(ctx, user, payment)
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.True(t, sessions.HasTempPremium(1))

	first, ok := sessions.Get(1)
	require.True(t, ok)

	result, err = svc.HandleSuccessfulPayment(ctx, user, payment)
	require.NoError(t, err)
	require.True(t, result.Duplicate)

	// The original paid session was not replaced by the redelivery.
	second, ok := sessions.Get(1)
	require.True(t, ok)
	require.Equal(t, first.ID, second.ID)
}
