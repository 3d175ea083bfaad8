package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velvetlab/nightwhisper/internal/config"
	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/session"
)

// PaymentService handles the two fixed Telegram Stars SKUs: a 30-day
// subscription extension and a 40-minute temporary-premium session.
// A confirmed payment event is the sole trigger for granting either.
type PaymentService struct {
	cfg          config.Config
	payments     *repository.PaymentRepository
	users        *repository.UserRepository
	sessionsRepo *repository.SessionRepository
	sessions     *session.Manager
	referrals    *ReferralService
	events       *repository.EventRepository
	now          func() time.Time
}

func NewPaymentService(cfg config.Config, payments *repository.PaymentRepository, users *repository.UserRepository, sessionsRepo *repository.SessionRepository, sessions *session.Manager, referrals *ReferralService, events *repository.EventRepository) *PaymentService {
	return &PaymentService{
		cfg:          cfg,
		payments:     payments,
		users:        users,
		sessionsRepo: sessionsRepo,
		sessions:     sessions,
		referrals:    referrals,
		events:       events,
		now:          time.Now,
	}
}

// PaymentResult tells the transport layer what was granted and whether a
// referral conversion should be announced to the referrer. Duplicate marks
// a redelivered update whose charge was already processed.
type PaymentResult struct {
	Payload    string
	ReferrerID int64
	Converted  bool
	Duplicate  bool
}

// SendPremiumInvoice issues the subscription invoice. Telegram Stars use
// the XTR currency with an empty provider token.
func (s *PaymentService) SendPremiumInvoice(bot *tgbotapi.BotAPI, chatID int64) error {
	invoice := tgbotapi.NewInvoice(chatID,
		"⭐ Night Whisper Premium",
		"Unlimited conversations for 1 month",
		models.PayloadPremiumMonth,
		"",
		"premium",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: "Premium", Amount: s.cfg.PremiumPriceStars}},
	)
	if _, err := bot.Send(invoice); err != nil {
		return fmt.Errorf("send premium invoice: %w", err)
	}
	return nil
}

// SendSessionInvoice issues the one-off deep session invoice.
func (s *PaymentService) SendSessionInvoice(bot *tgbotapi.BotAPI, chatID int64) error {
	invoice := tgbotapi.NewInvoice(chatID,
		"💫 Deep session",
		"40 minutes without limits",
		models.PayloadDeepSession,
		"",
		"session",
		"XTR",
		[]tgbotapi.LabeledPrice{{Label: "Session", Amount: s.cfg.SessionPriceStars}},
	)
	if _, err := bot.Send(invoice); err != nil {
		return fmt.Errorf("send session invoice: %w", err)
	}
	return nil
}

func (s *PaymentService) HandlePreCheckout(bot *tgbotapi.BotAPI, query *tgbotapi.PreCheckoutQuery) error {
	response := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	}
	if _, err := bot.Request(response); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", err)
	}
	return nil
}

// HandleSuccessfulPayment grants the purchased SKU and records the charge.
// Telegram may redeliver a successful_payment update; the provider charge
// id dedupes those so each purchase grants exactly once.
func (s *PaymentService) HandleSuccessfulPayment(ctx context.Context, user *models.User, payment *tgbotapi.SuccessfulPayment) (*PaymentResult, error) {
	if payment.TelegramPaymentChargeID != "" {
		existing, err := s.payments.FindByProviderCharge(ctx, "telegram_stars", payment.TelegramPaymentChargeID)
		if err != nil {
			return nil, fmt.Errorf("look up charge: %w", err)
		}
		if existing != nil {
			return &PaymentResult{Payload: existing.Payload, Duplicate: true}, nil
		}
	}

	result := &PaymentResult{Payload: payment.InvoicePayload}

	switch payment.InvoicePayload {
	case models.PayloadPremiumMonth:
		if err := s.users.ExtendPremium(ctx, user.ID, s.cfg.PremiumDays, s.now().UTC()); err != nil {
			return nil, fmt.Errorf("extend premium: %w", err)
		}
		referrerID, converted, err := s.referrals.Convert(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("referral conversion: %w", err)
		}
		result.ReferrerID = referrerID
		result.Converted = converted
		if err := s.events.Log(ctx, user.ID, "purchase_premium", fmt.Sprintf("%d_stars", payment.TotalAmount)); err != nil {
			return nil, fmt.Errorf("log purchase: %w", err)
		}

	case models.PayloadDeepSession:
		recordID, err := s.sessionsRepo.Start(ctx, user.ID, false, s.now().UTC())
		if err != nil {
			return nil, fmt.Errorf("start paid session: %w", err)
		}
		s.sessions.Start(user.ID, models.KindTempPremium, recordID)
		if err := s.events.Log(ctx, user.ID, "purchase_session", fmt.Sprintf("%d_stars", payment.TotalAmount)); err != nil {
			return nil, fmt.Errorf("log purchase: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown invoice payload: %s", payment.InvoicePayload)
	}

	record := &models.Payment{
		UserID:         user.ID,
		Provider:       "telegram_stars",
		ProviderCharge: payment.TelegramPaymentChargeID,
		Currency:       payment.Currency,
		Amount:         payment.TotalAmount,
		Payload:        payment.InvoicePayload,
		Status:         "paid",
		RawPayload:     string(jsonMustMarshal(payment)),
	}
	if err := s.payments.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return result, nil
}

func jsonMustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
