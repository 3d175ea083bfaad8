package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/velvetlab/nightwhisper/internal/models"
)

// Callback identifiers used by the inline keyboards.
const (
	cbStartChat     = "start_chat"
	cbConfessional  = "confessional"
	cbSleepStory    = "sleep_story"
	cbBuyPremium    = "buy_premium"
	cbBuySession    = "buy_session"
	cbReferral      = "referral"
	cbReferralStats = "show_referral_stats"
	cbBackReferral  = "back_to_referral"
	cbBackMenu      = "back_to_menu"
	cbEndSession    = "end_session"
	cbSettings      = "settings"
	cbSetLangPrefix = "set_lang_"
)

// mainMenu builds the mode-selection keyboard. Purchase rows are hidden
// while the user already holds full access.
func mainMenu(lang string, tier models.Tier) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "start_chat"), cbStartChat)},
		{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "confessional"), cbConfessional)},
		{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "sleep_story"), cbSleepStory)},
	}
	if !tier.Full() {
		rows = append(rows,
			[]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "buy_premium"), cbBuyPremium)},
			[]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "buy_session"), cbBuySession)},
		)
	}
	rows = append(rows,
		[]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "referral"), cbReferral)},
		[]tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData(getText(lang, "settings"), cbSettings)},
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func sessionMenu(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "end"), cbEndSession),
		),
	)
}

func upsellMenu(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "buy_premium"), cbBuyPremium),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "buy_session"), cbBuySession),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "referral"), cbReferral),
		),
	)
}

func referralMenu(lang, link string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(getText(lang, "referral_share"), link),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "referral_stats"), cbReferralStats),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "back"), cbBackMenu),
		),
	)
}

func referralStatsMenu(lang string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(getText(lang, "back"), cbBackReferral),
		),
	)
}

func languageMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇷🇺 Русский", cbSetLangPrefix+"ru"),
			tgbotapi.NewInlineKeyboardButtonData("🇬🇧 English", cbSetLangPrefix+"en"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🇪🇸 Español", cbSetLangPrefix+"es"),
			tgbotapi.NewInlineKeyboardButtonData("🇩🇪 Deutsch", cbSetLangPrefix+"de"),
		),
	)
}
