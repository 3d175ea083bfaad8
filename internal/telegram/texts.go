package telegram

import (
	"strings"
	"time"
)

// texts holds the per-locale string tables. Russian is the reference
// locale; missing keys fall back to it.
var texts = map[string]map[string]string{
	"ru": {
		"start_chat":           "🌙 Начать разговор",
		"confessional":         "⛪ Режим исповеди",
		"sleep_story":          "📖 Сонная история",
		"buy_premium":          "⭐ Premium (150 ⭐)",
		"buy_session":          "💫 Глубокий сеанс (50 ⭐)",
		"referral":             "🎁 Пригласить друга",
		"settings":             "⚙️ Язык",
		"end":                  "❌ Завершить диалог",
		"welcome":              "🌙 Night Whisper\n\nЯ просыпаюсь ночью, чтобы помочь с тревогой и бессонницей.\n\nБесплатно: 3 сообщения, 1 исповедь, 1 история за ночь",
		"limit_reached":        "🚫 Лимит достигнут!\n\nКупите Premium или разовый сеанс.",
		"chat_started":         "🌙 Разговор начат\n\nЯ слушаю. Пиши или отправляй голосом.",
		"confessional_started": "⛪ Режим исповеди\n\n40 минут. Сообщения удалятся после. Я ничего не сохраняю.",
		"story_generating":     "🌙 Придумываю историю...",
		"story_ready":          "📖 %s\n\nЗакрывай глаза и представь это...",
		"story_failed":         "❌ Ошибка генерации.",
		"premium_activated":    "✨ Premium активирован!\n\nНеограниченные разговоры на месяц.",
		"session_activated":    "💫 Сеанс активирован!\n\n40 минут без лимитов.",
		"choose_language":      "Выберите язык:",
		"language_set":         "Язык изменён",
		"choose_mode":          "Выберите режим в меню:",
		"dialog_ended":         "✅ Диалог завершён.",
		"no_dialog":            "Нет активного диалога.",
		"confession_closed":    "🕯️ Исповедь завершена\n\n%d сообщений удалено.",
		"confession_timeout":   "🕯️ Исповедь автоматически завершена (40 мин)\n\nВсе сообщения удалены.",
		"voice_failed":         "🎤 Не удалось распознать голос. Попробуйте текстом.",
		"voice_recognized":     "🎤 Распознано: %s",
		"trial_started":        "🎁 3 дня полного доступа бесплатно!",
		"trial_active":         "🎁 Триал до %s",
		"trial_over":           "⏰ Триал закончился. Купите Premium.",
		"status_premium":       "⭐ Premium",
		"status_trial":         "🎁 Триал",
		"status_session":       "💫 Разовый сеанс",
		"status_free":          "🆓 Бесплатно",
		"new_referral":         "🎁 Новый реферал! +%d сообщений.",
		"referral_converted":   "🌟 Ваш друг купил Premium! +%d сообщений.",
		"night_greeting_22":    "🌙 Добрый вечер. Ночь только начинается...",
		"night_greeting_0":     "🌌 Глубокая ночь. Ты не один.",
		"night_greeting_5":     "🌅 Уже почти утро. Давай разберёмся с тревогами.",
		"referral_offer":       "🎁 Пригласи друга и получи бонусы!\n\nЗа каждого друга:\n• +5 бесплатных сообщений\n• ещё +5 если купит Premium",
		"referral_share":       "📤 Поделиться",
		"referral_stats":       "📊 Моя статистика",
		"referral_stats_text":  "📊 Ваша статистика\n\nПриглашено: %d\nАктивных: %d\n\nСсылка:\n%s",
		"back":                 "🔙 Назад",
		"main_menu":            "🏠 Главное меню",
	},
	"en": {
		"start_chat":           "🌙 Start conversation",
		"confessional":         "⛪ Confessional mode",
		"sleep_story":          "📖 Sleep story",
		"buy_premium":          "⭐ Premium (150 ⭐)",
		"buy_session":          "💫 Deep session (50 ⭐)",
		"referral":             "🎁 Invite friend",
		"settings":             "⚙️ Language",
		"end":                  "❌ End conversation",
		"welcome":              "🌙 Night Whisper\n\nI wake at night to help with anxiety and insomnia.\n\nFree: 3 messages, 1 confession, 1 story per night",
		"limit_reached":        "🚫 Limit reached!\n\nBuy Premium or a single session.",
		"chat_started":         "🌙 Conversation started\n\nI'm listening. Text or voice.",
		"confessional_started": "⛪ Confessional mode\n\n40 minutes. Messages will be deleted. I save nothing.",
		"story_generating":     "🌙 Creating story...",
		"story_ready":          "📖 %s\n\nClose your eyes and imagine...",
		"story_failed":         "❌ Story generation failed.",
		"premium_activated":    "✨ Premium activated!\n\nUnlimited conversations for a month.",
		"session_activated":    "💫 Session activated!\n\n40 minutes without limits.",
		"choose_language":      "Choose language:",
		"language_set":         "Language changed",
		"choose_mode":          "Choose a mode from the menu:",
		"dialog_ended":         "✅ Conversation ended.",
		"no_dialog":            "No active conversation.",
		"confession_closed":    "🕯️ Confession closed\n\n%d messages deleted.",
		"confession_timeout":   "🕯️ Confession auto-closed (40 min)\n\nAll messages deleted.",
		"voice_failed":         "🎤 Could not recognize the voice message. Try text.",
		"voice_recognized":     "🎤 Recognized: %s",
		"trial_started":        "🎁 3 days of full access for free!",
		"trial_active":         "🎁 Trial until %s",
		"trial_over":           "⏰ Trial is over. Buy Premium.",
		"status_premium":       "⭐ Premium",
		"status_trial":         "🎁 Trial",
		"status_session":       "💫 Single session",
		"status_free":          "🆓 Free",
		"new_referral":         "🎁 New referral! +%d messages.",
		"referral_converted":   "🌟 Your friend bought Premium! +%d messages.",
		"night_greeting_22":    "🌙 Good evening. The night is just beginning...",
		"night_greeting_0":     "🌌 Deep night. You are not alone.",
		"night_greeting_5":     "🌅 Almost morning. Let's sort out your worries.",
		"referral_offer":       "🎁 Invite a friend and get bonuses!\n\nFor each friend:\n• +5 free messages\n• +5 more if they buy Premium",
		"referral_share":       "📤 Share",
		"referral_stats":       "📊 My stats",
		"referral_stats_text":  "📊 Your statistics\n\nInvited: %d\nActive: %d\n\nLink:\n%s",
		"back":                 "🔙 Back",
		"main_menu":            "🏠 Main menu",
	},
	"es": {
		"start_chat":           "🌙 Iniciar conversación",
		"confessional":         "⛪ Modo confesión",
		"sleep_story":          "📖 Cuento para dormir",
		"buy_premium":          "⭐ Premium (150 ⭐)",
		"buy_session":          "💫 Sesión profunda (50 ⭐)",
		"referral":             "🎁 Invitar a un amigo",
		"settings":             "⚙️ Idioma",
		"end":                  "❌ Terminar conversación",
		"welcome":              "🌙 Night Whisper\n\nDespierto de noche para ayudar con la ansiedad y el insomnio.\n\nGratis: 3 mensajes, 1 confesión, 1 cuento por noche",
		"limit_reached":        "🚫 ¡Límite alcanzado!\n\nCompra Premium o una sesión única.",
		"chat_started":         "🌙 Conversación iniciada\n\nTe escucho. Texto o voz.",
		"confessional_started": "⛪ Modo confesión\n\n40 minutos. Los mensajes se borrarán después. No guardo nada.",
		"story_generating":     "🌙 Creando el cuento...",
		"story_ready":          "📖 %s\n\nCierra los ojos e imagínalo...",
		"story_failed":         "❌ Error al generar el cuento.",
		"premium_activated":    "✨ ¡Premium activado!\n\nConversaciones ilimitadas por un mes.",
		"session_activated":    "💫 ¡Sesión activada!\n\n40 minutos sin límites.",
		"choose_language":      "Elige idioma:",
		"language_set":         "Idioma cambiado",
		"choose_mode":          "Elige un modo en el menú:",
		"dialog_ended":         "✅ Conversación terminada.",
		"no_dialog":            "No hay conversación activa.",
		"confession_closed":    "🕯️ Confesión cerrada\n\n%d mensajes borrados.",
		"confession_timeout":   "🕯️ Confesión cerrada automáticamente (40 min)\n\nTodos los mensajes borrados.",
		"voice_failed":         "🎤 No pude reconocer el mensaje de voz. Prueba con texto.",
		"voice_recognized":     "🎤 Reconocido: %s",
		"trial_started":        "🎁 ¡3 días de acceso completo gratis!",
		"trial_active":         "🎁 Prueba hasta %s",
		"trial_over":           "⏰ La prueba terminó. Compra Premium.",
		"status_premium":       "⭐ Premium",
		"status_trial":         "🎁 Prueba",
		"status_session":       "💫 Sesión única",
		"status_free":          "🆓 Gratis",
		"new_referral":         "🎁 ¡Nuevo referido! +%d mensajes.",
		"referral_converted":   "🌟 ¡Tu amigo compró Premium! +%d mensajes.",
		"night_greeting_22":    "🌙 Buenas noches. La noche apenas comienza...",
		"night_greeting_0":     "🌌 Noche profunda. No estás solo.",
		"night_greeting_5":     "🌅 Ya casi amanece. Resolvamos tus preocupaciones.",
		"referral_offer":       "🎁 ¡Invita a un amigo y gana bonos!\n\nPor cada amigo:\n• +5 mensajes gratis\n• +5 más si compra Premium",
		"referral_share":       "📤 Compartir",
		"referral_stats":       "📊 Mis estadísticas",
		"referral_stats_text":  "📊 Tus estadísticas\n\nInvitados: %d\nActivos: %d\n\nEnlace:\n%s",
		"back":                 "🔙 Atrás",
		"main_menu":            "🏠 Menú principal",
	},
	"de": {
		"start_chat":           "🌙 Gespräch beginnen",
		"confessional":         "⛪ Beichtmodus",
		"sleep_story":          "📖 Schlafgeschichte",
		"buy_premium":          "⭐ Premium (150 ⭐)",
		"buy_session":          "💫 Tiefe Sitzung (50 ⭐)",
		"referral":             "🎁 Freund einladen",
		"settings":             "⚙️ Sprache",
		"end":                  "❌ Gespräch beenden",
		"welcome":              "🌙 Night Whisper\n\nIch wache nachts auf, um bei Angst und Schlaflosigkeit zu helfen.\n\nKostenlos: 3 Nachrichten, 1 Beichte, 1 Geschichte pro Nacht",
		"limit_reached":        "🚫 Limit erreicht!\n\nKaufe Premium oder eine Einzelsitzung.",
		"chat_started":         "🌙 Gespräch gestartet\n\nIch höre zu. Text oder Sprache.",
		"confessional_started": "⛪ Beichtmodus\n\n40 Minuten. Nachrichten werden danach gelöscht. Ich speichere nichts.",
		"story_generating":     "🌙 Ich denke mir eine Geschichte aus...",
		"story_ready":          "📖 %s\n\nSchließe die Augen und stell es dir vor...",
		"story_failed":         "❌ Geschichte fehlgeschlagen.",
		"premium_activated":    "✨ Premium aktiviert!\n\nUnbegrenzte Gespräche für einen Monat.",
		"session_activated":    "💫 Sitzung aktiviert!\n\n40 Minuten ohne Limits.",
		"choose_language":      "Sprache wählen:",
		"language_set":         "Sprache geändert",
		"choose_mode":          "Wähle einen Modus im Menü:",
		"dialog_ended":         "✅ Gespräch beendet.",
		"no_dialog":            "Kein aktives Gespräch.",
		"confession_closed":    "🕯️ Beichte beendet\n\n%d Nachrichten gelöscht.",
		"confession_timeout":   "🕯️ Beichte automatisch beendet (40 Min)\n\nAlle Nachrichten gelöscht.",
		"voice_failed":         "🎤 Sprachnachricht nicht erkannt. Versuche es mit Text.",
		"voice_recognized":     "🎤 Erkannt: %s",
		"trial_started":        "🎁 3 Tage voller Zugang kostenlos!",
		"trial_active":         "🎁 Testphase bis %s",
		"trial_over":           "⏰ Testphase vorbei. Kaufe Premium.",
		"status_premium":       "⭐ Premium",
		"status_trial":         "🎁 Testphase",
		"status_session":       "💫 Einzelsitzung",
		"status_free":          "🆓 Kostenlos",
		"new_referral":         "🎁 Neuer Referral! +%d Nachrichten.",
		"referral_converted":   "🌟 Dein Freund hat Premium gekauft! +%d Nachrichten.",
		"night_greeting_22":    "🌙 Guten Abend. Die Nacht beginnt gerade erst...",
		"night_greeting_0":     "🌌 Tiefe Nacht. Du bist nicht allein.",
		"night_greeting_5":     "🌅 Fast Morgen. Lass uns deine Sorgen sortieren.",
		"referral_offer":       "🎁 Lade einen Freund ein und erhalte Boni!\n\nFür jeden Freund:\n• +5 kostenlose Nachrichten\n• +5 weitere bei Premium-Kauf",
		"referral_share":       "📤 Teilen",
		"referral_stats":       "📊 Meine Statistik",
		"referral_stats_text":  "📊 Deine Statistik\n\nEingeladen: %d\nAktiv: %d\n\nLink:\n%s",
		"back":                 "🔙 Zurück",
		"main_menu":            "🏠 Hauptmenü",
	},
}

func getText(lang, key string) string {
	if table, ok := texts[lang]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	if text, ok := texts["ru"][key]; ok {
		return text
	}
	return key
}

// normalizeLang maps an arbitrary locale hint to a supported language.
func normalizeLang(hint, fallback string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if idx := strings.IndexAny(hint, "-_"); idx > 0 {
		hint = hint[:idx]
	}
	if _, ok := texts[hint]; ok {
		return hint
	}
	return fallback
}

// previewTranscript shortens a transcript for the confessional echo.
func previewTranscript(s string) string {
	const limit = 80
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// greetingKey picks the greeting bucket by the local hour.
func greetingKey(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour >= 22:
		return "night_greeting_22"
	case hour < 4:
		return "night_greeting_0"
	default:
		return "night_greeting_5"
	}
}
