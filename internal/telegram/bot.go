package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velvetlab/nightwhisper/internal/config"
	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/service"
	"github.com/velvetlab/nightwhisper/internal/session"
)

type Bot struct {
	cfg          config.Config
	api          *tgbotapi.BotAPI
	log          *slog.Logger
	users        *service.UserService
	access       *service.AccessService
	quota        *service.QuotaService
	chat         *service.ChatService
	referrals    *service.ReferralService
	payments     *service.PaymentService
	stats        *service.StatsService
	sessions     *session.Manager
	sessionsRepo *repository.SessionRepository
	httpClient   *http.Client
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, users *service.UserService, access *service.AccessService, quota *service.QuotaService, chat *service.ChatService, referrals *service.ReferralService, payments *service.PaymentService, stats *service.StatsService, sessions *session.Manager, sessionsRepo *repository.SessionRepository) *Bot {
	return &Bot{
		cfg:          cfg,
		api:          api,
		log:          log,
		users:        users,
		access:       access,
		quota:        quota,
		chat:         chat,
		referrals:    referrals,
		payments:     payments,
		stats:        stats,
		sessions:     sessions,
		sessionsRepo: sessionsRepo,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			} else if update.PreCheckoutQuery != nil {
				if err := b.payments.HandlePreCheckout(b.api, update.PreCheckoutQuery); err != nil {
					b.log.Error("pre-checkout failed", "err", err)
				}
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	userID := msg.From.ID

	unlock := b.sessions.Lock(userID)
	defer unlock()

	if msg.SuccessfulPayment != nil {
		b.handleSuccessfulPayment(ctx, msg)
		return
	}

	if msg.IsCommand() && msg.Command() == "start" {
		b.handleStart(ctx, msg)
		return
	}

	user, err := b.ensureUser(ctx, msg.From, nil)
	if err != nil {
		b.log.Error("ensure user", "user", userID, "err", err)
		return
	}
	if user.IsBlocked {
		return
	}
	b.touch(ctx, user)

	if msg.IsCommand() {
		if b.isAdmin(userID) && b.handleAdminCommand(ctx, msg) {
			return
		}
		b.handleCommand(ctx, msg, user)
		return
	}

	b.expireIfNeeded(ctx, user, msg.Chat.ID)

	text := msg.Text
	if msg.Voice != nil {
		// No active session means nothing to transcribe into.
		sess, ok := b.sessions.Get(user.ID)
		if !ok {
			reply := tgbotapi.NewMessage(msg.Chat.ID, getText(user.Language, "choose_mode"))
			reply.ReplyMarkup = mainMenu(user.Language, b.resolveTier(ctx, user))
			b.send(reply)
			return
		}
		transcript, handled := b.handleVoice(ctx, msg, user, sess)
		if !handled {
			return
		}
		text = transcript
	}
	if strings.TrimSpace(text) == "" {
		return
	}
	b.handleText(ctx, msg, user, text)
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	referrerID := service.ParseStartParam(msg.CommandArguments())

	user, created, err := b.users.Ensure(ctx, msg.From.ID, msg.From.UserName, normalizeLang(msg.From.LanguageCode, b.cfg.DefaultLanguage), referrerID)
	if err != nil {
		b.log.Error("ensure user start", "user", msg.From.ID, "err", err)
		return
	}
	if user.IsBlocked {
		return
	}
	b.touch(ctx, user)

	if created {
		if err := b.stats.LogEvent(ctx, user.ID, "new_user", user.Language); err != nil {
			b.log.Error("log new user", "user", user.ID, "err", err)
		}
		if user.ReferrerID != nil {
			if err := b.referrals.RegisterSignup(ctx, *user.ReferrerID, user.ID); err != nil {
				b.log.Error("register referral", "referrer", *user.ReferrerID, "err", err)
			} else {
				b.notifyReferrer(ctx, *user.ReferrerID, "new_referral")
			}
		}
	}

	trialEnded, err := b.access.CloseTrialIfLapsed(ctx, user)
	if err != nil {
		b.log.Error("close trial", "user", user.ID, "err", err)
	}
	tier := b.access.Resolve(user)

	var sb strings.Builder
	sb.WriteString(getText(user.Language, greetingKey(time.Now())))
	sb.WriteString("\n\n")
	sb.WriteString(getText(user.Language, "welcome"))
	sb.WriteString("\n\n")
	sb.WriteString(b.statusLine(ctx, user, tier))
	if trialEnded {
		sb.WriteString("\n\n")
		sb.WriteString(getText(user.Language, "trial_over"))
	}
	if created && tier == models.TierTrial {
		sb.WriteString("\n\n")
		sb.WriteString(getText(user.Language, "trial_started"))
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, sb.String())
	reply.ReplyMarkup = mainMenu(user.Language, tier)
	b.send(reply)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	switch msg.Command() {
	case "menu":
		b.sendMenu(ctx, msg.Chat.ID, user)
	case "language":
		reply := tgbotapi.NewMessage(msg.Chat.ID, getText(user.Language, "choose_language"))
		reply.ReplyMarkup = languageMenu()
		b.send(reply)
	case "end":
		b.endSession(ctx, user, msg.Chat.ID, false)
	default:
		b.sendMenu(ctx, msg.Chat.ID, user)
	}
}

// handleText routes one inbound user utterance into the active session.
func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message, user *models.User, text string) {
	sess, ok := b.sessions.Get(user.ID)
	if !ok {
		reply := tgbotapi.NewMessage(msg.Chat.ID, getText(user.Language, "choose_mode"))
		reply.ReplyMarkup = mainMenu(user.Language, b.resolveTier(ctx, user))
		b.send(reply)
		return
	}

	tier := b.resolveTier(ctx, user)
	if tier == models.TierFree && !sess.Confessional() {
		if err := b.quota.ConsumeMessage(ctx, user.ID); err != nil {
			if errors.Is(err, service.ErrLimitReached) {
				reply := tgbotapi.NewMessage(msg.Chat.ID, getText(user.Language, "limit_reached"))
				reply.ReplyMarkup = upsellMenu(user.Language)
				b.send(reply)
				return
			}
			b.log.Error("consume message quota", "user", user.ID, "err", err)
			return
		}
	}

	if sess.Confessional() {
		b.sessions.RecordMessageID(user.ID, msg.MessageID)
	}

	answer := b.chat.Reply(ctx, user, sess, text)
	sent, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, answer))
	if err != nil {
		b.log.Error("send reply", "user", user.ID, "err", err)
		return
	}
	if sess.Confessional() {
		b.sessions.RecordMessageID(user.ID, sent.MessageID)
	}
}

// handleVoice downloads and transcribes a voice note. Inside a
// confessional session a truncated preview of what was heard is echoed
// back and enters the retraction set; other modes reply silently.
func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message, user *models.User, sess *session.Session) (string, bool) {
	data, err := b.downloadFile(ctx, msg.Voice.FileID)
	if err != nil {
		b.log.Error("download voice", "user", user.ID, "err", err)
		b.sendText(msg.Chat.ID, getText(user.Language, "voice_failed"))
		return "", false
	}

	transcript := b.chat.Transcribe(ctx, data, user.Language)
	if sess.Confessional() {
		echo, err := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(getText(user.Language, "voice_recognized"), previewTranscript(transcript))))
		if err == nil {
			b.sessions.RecordMessageID(user.ID, echo.MessageID)
		}
	}
	return transcript, true
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil {
		return
	}
	userID := cb.From.ID

	unlock := b.sessions.Lock(userID)
	defer unlock()

	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("callback ack", "err", err)
	}

	user, err := b.ensureUser(ctx, cb.From, nil)
	if err != nil {
		b.log.Error("ensure user callback", "user", userID, "err", err)
		return
	}
	if user.IsBlocked {
		return
	}
	b.touch(ctx, user)
	chatID := cb.Message.Chat.ID
	b.expireIfNeeded(ctx, user, chatID)

	switch {
	case cb.Data == cbStartChat:
		b.startChat(ctx, user, chatID)
	case cb.Data == cbConfessional:
		b.startConfessional(ctx, user, chatID)
	case cb.Data == cbSleepStory:
		b.sendStory(ctx, user, chatID)
	case cb.Data == cbEndSession:
		b.endSession(ctx, user, chatID, false)
	case cb.Data == cbBuyPremium:
		if err := b.payments.SendPremiumInvoice(b.api, chatID); err != nil {
			b.log.Error("premium invoice", "user", user.ID, "err", err)
		}
	case cb.Data == cbBuySession:
		if err := b.payments.SendSessionInvoice(b.api, chatID); err != nil {
			b.log.Error("session invoice", "user", user.ID, "err", err)
		}
	case cb.Data == cbReferral, cb.Data == cbBackReferral:
		reply := tgbotapi.NewMessage(chatID, getText(user.Language, "referral_offer"))
		reply.ReplyMarkup = referralMenu(user.Language, b.referrals.Link(user.ID))
		b.send(reply)
	case cb.Data == cbReferralStats:
		stats, err := b.referrals.Stats(ctx, user.ID)
		if err != nil {
			b.log.Error("referral stats", "user", user.ID, "err", err)
			return
		}
		text := fmt.Sprintf(getText(user.Language, "referral_stats_text"), stats.Total, stats.Converted, b.referrals.Link(user.ID))
		reply := tgbotapi.NewMessage(chatID, text)
		reply.ReplyMarkup = referralStatsMenu(user.Language)
		b.send(reply)
	case cb.Data == cbBackMenu:
		b.sendMenu(ctx, chatID, user)
	case cb.Data == cbSettings:
		reply := tgbotapi.NewMessage(chatID, getText(user.Language, "choose_language"))
		reply.ReplyMarkup = languageMenu()
		b.send(reply)
	case strings.HasPrefix(cb.Data, cbSetLangPrefix):
		lang := normalizeLang(strings.TrimPrefix(cb.Data, cbSetLangPrefix), b.cfg.DefaultLanguage)
		if err := b.users.SetLanguage(ctx, user.ID, lang); err != nil {
			b.log.Error("set language", "user", user.ID, "err", err)
			return
		}
		user.Language = lang
		b.sendText(chatID, getText(lang, "language_set"))
		b.sendMenu(ctx, chatID, user)
	default:
		b.log.Warn("unknown callback", "data", cb.Data)
	}
}

func (b *Bot) startChat(ctx context.Context, user *models.User, chatID int64) {
	remaining := -1
	if b.resolveTier(ctx, user) == models.TierFree {
		r, err := b.quota.MessagesRemaining(ctx, user.ID)
		if err != nil {
			b.log.Error("read message quota", "user", user.ID, "err", err)
			return
		}
		if r == 0 {
			reply := tgbotapi.NewMessage(chatID, getText(user.Language, "limit_reached"))
			reply.ReplyMarkup = upsellMenu(user.Language)
			b.send(reply)
			return
		}
		remaining = r
	}

	recordID, err := b.sessionsRepo.Start(ctx, user.ID, false, time.Now().UTC())
	if err != nil {
		b.log.Error("start session record", "user", user.ID, "err", err)
		return
	}
	b.sessions.Start(user.ID, models.KindChat, recordID)

	var sb strings.Builder
	sb.WriteString(getText(user.Language, "chat_started"))
	if remaining >= 0 {
		sb.WriteString(fmt.Sprintf("\n\n%d/%d", remaining, b.cfg.FreeMessagesPerDay))
	}
	reply := tgbotapi.NewMessage(chatID, sb.String())
	reply.ReplyMarkup = sessionMenu(user.Language)
	b.send(reply)
}

func (b *Bot) startConfessional(ctx context.Context, user *models.User, chatID int64) {
	tier := b.resolveTier(ctx, user)
	if !tier.Full() {
		if err := b.quota.ConsumeConfession(user.ID); err != nil {
			reply := tgbotapi.NewMessage(chatID, getText(user.Language, "limit_reached"))
			reply.ReplyMarkup = upsellMenu(user.Language)
			b.send(reply)
			return
		}
	}

	b.sessions.Start(user.ID, models.KindConfessional, 0)
	if err := b.stats.LogEvent(ctx, user.ID, "confession_started", user.Language); err != nil {
		b.log.Error("log confession", "user", user.ID, "err", err)
	}

	reply := tgbotapi.NewMessage(chatID, getText(user.Language, "confessional_started"))
	reply.ReplyMarkup = sessionMenu(user.Language)
	sent, err := b.api.Send(reply)
	if err != nil {
		b.log.Error("send confessional intro", "user", user.ID, "err", err)
		return
	}
	b.sessions.RecordMessageID(user.ID, sent.MessageID)
}

func (b *Bot) sendStory(ctx context.Context, user *models.User, chatID int64) {
	free := !b.resolveTier(ctx, user).Full()
	if free && !b.quota.StoryAvailable(user.ID) {
		reply := tgbotapi.NewMessage(chatID, getText(user.Language, "limit_reached"))
		reply.ReplyMarkup = upsellMenu(user.Language)
		b.send(reply)
		return
	}

	b.sendText(chatID, getText(user.Language, "story_generating"))
	story, err := b.chat.GenerateStory(ctx, user)
	if err != nil {
		// The allowance stays intact so the user can retry tonight.
		b.log.Error("generate story", "user", user.ID, "err", err)
		b.sendText(chatID, getText(user.Language, "story_failed"))
		return
	}
	if free {
		if err := b.quota.ConsumeStory(user.ID); err != nil {
			b.log.Warn("mark story used", "user", user.ID, "err", err)
		}
	}
	b.sendText(chatID, fmt.Sprintf(getText(user.Language, "story_ready"), story))
}

// endSession closes the active session. Confessional closes retract every
// recorded message and report the count; the timeout variant uses its own
// notice text.
func (b *Bot) endSession(ctx context.Context, user *models.User, chatID int64, timedOut bool) {
	sess, ok := b.sessions.End(user.ID)
	if !ok {
		if !timedOut {
			b.sendText(chatID, getText(user.Language, "no_dialog"))
		}
		return
	}
	if sess.RecordID != 0 {
		if err := b.sessionsRepo.End(ctx, sess.RecordID, time.Now().UTC()); err != nil {
			b.log.Error("close session record", "user", user.ID, "err", err)
		}
	}

	if sess.Confessional() {
		ids := sess.MessageIDs()
		b.retract(chatID, ids)
		if timedOut {
			b.sendText(chatID, getText(user.Language, "confession_timeout"))
		} else {
			b.sendText(chatID, fmt.Sprintf(getText(user.Language, "confession_closed"), len(ids)))
		}
	} else if !timedOut {
		b.sendText(chatID, getText(user.Language, "dialog_ended"))
	}
	b.sendMenu(ctx, chatID, user)
}

// expireIfNeeded performs the lazy timeout check: sessions are closed on
// the next inbound action after their clock runs out, never by a sweeper.
func (b *Bot) expireIfNeeded(ctx context.Context, user *models.User, chatID int64) {
	sess, ok := b.sessions.Get(user.ID)
	if !ok || !b.sessions.Expired(sess) {
		return
	}
	b.endSession(ctx, user, chatID, true)
}

// retract best-effort deletes every recorded confessional message. A
// deletion failure (message too old, already gone) is logged and skipped.
func (b *Bot) retract(chatID int64, ids []int) {
	for _, id := range ids {
		if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, id)); err != nil {
			b.log.Warn("delete confessional message", "chat", chatID, "message", id, "err", err)
		}
	}
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.ensureUser(ctx, msg.From, nil)
	if err != nil {
		b.log.Error("ensure user payment", "err", err)
		return
	}
	result, err := b.payments.HandleSuccessfulPayment(ctx, user, msg.SuccessfulPayment)
	if err != nil {
		b.log.Error("process payment", "user", user.ID, "err", err)
		return
	}

	if result.Duplicate {
		b.log.Warn("duplicate payment delivery ignored", "user", user.ID, "payload", result.Payload)
		return
	}

	switch result.Payload {
	case models.PayloadPremiumMonth:
		b.sendText(msg.Chat.ID, getText(user.Language, "premium_activated"))
		if result.Converted {
			b.notifyReferrer(ctx, result.ReferrerID, "referral_converted")
		}
	case models.PayloadDeepSession:
		reply := tgbotapi.NewMessage(msg.Chat.ID, getText(user.Language, "session_activated"))
		reply.ReplyMarkup = sessionMenu(user.Language)
		b.send(reply)
	}
}

func (b *Bot) sendMenu(ctx context.Context, chatID int64, user *models.User) {
	tier := b.resolveTier(ctx, user)
	reply := tgbotapi.NewMessage(chatID, b.statusLine(ctx, user, tier))
	reply.ReplyMarkup = mainMenu(user.Language, tier)
	b.send(reply)
}

// statusLine renders the current tier, with the remaining free allowance
// or the trial deadline where relevant.
func (b *Bot) statusLine(ctx context.Context, user *models.User, tier models.Tier) string {
	switch tier {
	case models.TierPremium:
		return getText(user.Language, "status_premium")
	case models.TierTempSession:
		return getText(user.Language, "status_session")
	case models.TierTrial:
		line := getText(user.Language, "status_trial")
		if user.TrialUntil != nil {
			line += "\n" + fmt.Sprintf(getText(user.Language, "trial_active"), user.TrialUntil.UTC().Format("02.01.2006"))
		}
		return line
	default:
		line := getText(user.Language, "status_free")
		if remaining, err := b.quota.MessagesRemaining(ctx, user.ID); err == nil {
			line += fmt.Sprintf(" %d/%d", remaining, b.cfg.FreeMessagesPerDay)
		}
		return line
	}
}

// resolveTier applies the lazy trial closeout before resolving, so a
// lapsed trial is consumed on the first action that observes it.
func (b *Bot) resolveTier(ctx context.Context, user *models.User) models.Tier {
	if closed, err := b.access.CloseTrialIfLapsed(ctx, user); err != nil {
		b.log.Error("close trial", "user", user.ID, "err", err)
	} else if closed {
		b.log.Info("trial ended", "user", user.ID)
	}
	return b.access.Resolve(user)
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User, referrerID *int64) (*models.User, error) {
	user, _, err := b.users.Ensure(ctx, from.ID, from.UserName, normalizeLang(from.LanguageCode, b.cfg.DefaultLanguage), referrerID)
	return user, err
}

func (b *Bot) touch(ctx context.Context, user *models.User) {
	if err := b.users.TouchActivity(ctx, user.ID); err != nil {
		b.log.Error("touch activity", "user", user.ID, "err", err)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.AdminTelegramID != 0 && userID == b.cfg.AdminTelegramID
}

// notifyReferrer sends a bonus notice in the referrer's own language.
func (b *Bot) notifyReferrer(ctx context.Context, referrerID int64, key string) {
	referrer, err := b.users.Find(ctx, referrerID)
	if err != nil || referrer == nil {
		b.log.Warn("load referrer", "user", referrerID, "err", err)
		return
	}
	b.notify(referrer.ID, fmt.Sprintf(getText(referrer.Language, key), b.referrals.Bonus()))
}

// notify delivers a best-effort out-of-band message to another user.
func (b *Bot) notify(userID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		b.log.Warn("notify user", "user", userID, "err", err)
	}
}

// SendText exposes plain delivery for the broadcast endpoint.
func (b *Bot) SendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat", msg.ChatID, "err", err)
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("file path empty")
	}
	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", b.api.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram file status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file body: %w", err)
	}
	return body, nil
}
