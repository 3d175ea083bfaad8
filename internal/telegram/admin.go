package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// handleAdminCommand processes the operator-only commands. It reports
// whether the command was an admin one, so unknown commands fall through
// to the regular handler.
func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) bool {
	switch msg.Command() {
	case "admin":
		b.adminStats(ctx, msg.Chat.ID)
	case "give_premium":
		b.adminGivePremium(ctx, msg)
	case "add_messages":
		b.adminAddMessages(ctx, msg)
	case "block":
		b.adminBlock(ctx, msg)
	default:
		return false
	}
	return true
}

func (b *Bot) adminStats(ctx context.Context, chatID int64) {
	report, err := b.stats.Report(ctx, 1)
	if err != nil {
		b.log.Error("admin stats", "err", err)
		b.sendText(chatID, "stats failed")
		return
	}
	var sb strings.Builder
	sb.WriteString("📊 Stats (24h)\n\n")
	fmt.Fprintf(&sb, "Users: %d (premium %d)\n", report.TotalUsers, report.PremiumUsers)
	fmt.Fprintf(&sb, "New: %d\n", report.NewUsers)
	fmt.Fprintf(&sb, "Messages: %d\n", report.TotalMessages)
	fmt.Fprintf(&sb, "Referrals: %d/%d converted\n", report.ReferralsConverted, report.ReferralsTotal)
	if len(report.Languages) > 0 {
		sb.WriteString("Languages:")
		for lang, count := range report.Languages {
			fmt.Fprintf(&sb, " %s=%d", lang, count)
		}
	}
	b.sendText(chatID, sb.String())
}

func (b *Bot) adminGivePremium(ctx context.Context, msg *tgbotapi.Message) {
	targetID, days, err := parseTwoInts(msg.CommandArguments())
	if err != nil {
		b.sendText(msg.Chat.ID, "Usage: /give_premium USER_ID DAYS")
		return
	}
	if err := b.users.ExtendPremium(ctx, targetID, int(days)); err != nil {
		b.log.Error("admin give premium", "target", targetID, "err", err)
		b.sendText(msg.Chat.ID, "failed")
		return
	}
	b.logAdminAction(ctx, msg.From.ID, fmt.Sprintf("give_premium:%d:%d", targetID, days))
	b.sendText(msg.Chat.ID, fmt.Sprintf("Premium +%dd for %d", days, targetID))
}

func (b *Bot) adminAddMessages(ctx context.Context, msg *tgbotapi.Message) {
	targetID, count, err := parseTwoInts(msg.CommandArguments())
	if err != nil {
		b.sendText(msg.Chat.ID, "Usage: /add_messages USER_ID COUNT")
		return
	}
	if err := b.users.AddBonusMessages(ctx, targetID, int(count)); err != nil {
		b.log.Error("admin add messages", "target", targetID, "err", err)
		b.sendText(msg.Chat.ID, "failed")
		return
	}
	b.logAdminAction(ctx, msg.From.ID, fmt.Sprintf("add_messages:%d:%d", targetID, count))
	b.sendText(msg.Chat.ID, fmt.Sprintf("+%d bonus messages for %d", count, targetID))
}

func (b *Bot) adminBlock(ctx context.Context, msg *tgbotapi.Message) {
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil || targetID == 0 {
		b.sendText(msg.Chat.ID, "Usage: /block USER_ID")
		return
	}
	if err := b.users.SetBlocked(ctx, targetID, true); err != nil {
		b.log.Error("admin block", "target", targetID, "err", err)
		b.sendText(msg.Chat.ID, "failed")
		return
	}
	b.logAdminAction(ctx, msg.From.ID, fmt.Sprintf("block:%d", targetID))
	b.sendText(msg.Chat.ID, fmt.Sprintf("User %d blocked", targetID))
}

func (b *Bot) logAdminAction(ctx context.Context, adminID int64, action string) {
	if err := b.stats.LogEvent(ctx, adminID, "admin_action", action); err != nil {
		b.log.Error("log admin action", "err", err)
	}
}

func parseTwoInts(args string) (int64, int64, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("expected two arguments")
	}
	first, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || first == 0 {
		return 0, 0, fmt.Errorf("bad first argument")
	}
	second, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || second <= 0 {
		return 0, 0, fmt.Errorf("bad second argument")
	}
	return first, second, nil
}
