package service

import (
	"context"
	"log/slog"

	"github.com/velvetlab/nightwhisper/internal/groq"
	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/session"
)

// systemPrompts set the persona per locale; see fallbacks for the canned
// reply used whenever the LLM call fails.
var systemPrompts = map[string]string{
	"ru": "Ты — ночной психолог Луна. Мягкий, эмпатичный стиль. Помогай с тревогой и бессонницей. Отвечай кратко (2-4 предложения), с эмодзи.",
	"en": "You are night psychologist Luna. Gentle, empathetic style. Help with anxiety and insomnia. Reply briefly (2-4 sentences), with emojis.",
	"es": "Eres psicólogo nocturno Luna. Estilo gentil y empático. Ayuda con ansiedad e insomnio. Responde brevemente (2-4 frases), con emojis.",
	"de": "Du bist Nachtpsychologe Luna. Sanfter, einfühlsamer Stil. Hilfe bei Angst und Schlaflosigkeit. Antworte kurz (2-4 Sätze), mit Emojis.",
}

const defaultSystemPrompt = "You are night psychologist Luna. Help with anxiety and insomnia. Brief replies (2-4 sentences)."

const confessionalSuffix = " Сейчас режим исповеди. Будь особенно бережным и тактичным."

var storyPrompts = map[string]string{
	"ru": "Расскажи короткую сонную историю (3-5 предложений). Спокойная, без напряжения, про природу, тепло, мягкость.",
	"en": "Tell a short sleepy story (3-5 sentences). Calm, no tension, about nature, warmth, softness.",
	"es": "Cuenta un cuento corto para dormir (3-5 frases). Tranquilo, sin tensión, sobre naturaleza y calidez.",
	"de": "Erzähle eine kurze Schlafgeschichte (3-5 Sätze). Ruhig, ohne Spannung, über Natur und Wärme.",
}

var fallbacks = map[string]string{
	"ru": "🌙 Я здесь с тобой. Расскажи подробнее, что тебя беспокоит?",
	"en": "🌙 I'm here with you. Tell me more about what's bothering you?",
	"es": "🌙 Estoy aquí contigo. Cuéntame más sobre qué te preocupa?",
	"de": "🌙 Ich bin hier bei dir. Erzähle mir mehr von dem, was dich beunruhigt?",
}

const transcriptPlaceholder = "(voice message — transcript unavailable)"

// ChatService turns an accepted user message into a reply: it maintains
// the bounded conversation buffer, calls the LLM, persists turns of
// non-confessional sessions and degrades to a fixed per-locale fallback
// on any LLM failure.
type ChatService struct {
	log           *slog.Logger
	groq          *groq.Client
	sessions      *session.Manager
	conversations *repository.ConversationRepository
	events        *repository.EventRepository
}

func NewChatService(log *slog.Logger, client *groq.Client, sessions *session.Manager, conversations *repository.ConversationRepository, events *repository.EventRepository) *ChatService {
	return &ChatService{
		log:           log,
		groq:          client,
		sessions:      sessions,
		conversations: conversations,
		events:        events,
	}
}

// Fallback returns the canned reply for a locale.
func Fallback(lang string) string {
	if text, ok := fallbacks[lang]; ok {
		return text
	}
	return fallbacks["en"]
}

// Reply produces the assistant's answer for one inbound message in an
// active session. LLM failures are recovered locally: the user always
// gets text back and the error is only logged.
func (s *ChatService) Reply(ctx context.Context, user *models.User, sess *session.Session, text string) string {
	s.sessions.AppendTurn(user.ID, session.RoleUser, text)

	system := systemPrompt(user.Language)
	if sess.Confessional() {
		system += confessionalSuffix
	}

	turns := s.sessions.Turns(user.ID)
	messages := make([]groq.Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, groq.Message{Role: t.Role, Content: t.Content})
	}

	reply, err := s.groq.ChatCompletion(ctx, system, messages)
	if err != nil {
		s.log.Error("chat completion failed", "user", user.ID, "err", err)
		reply = Fallback(user.Language)
	}

	s.sessions.AppendTurn(user.ID, session.RoleAssistant, reply)

	if !sess.Confessional() && sess.RecordID != 0 {
		if err := s.conversations.Add(ctx, user.ID, sess.RecordID, text, true); err != nil {
			s.log.Error("persist user turn", "user", user.ID, "err", err)
		}
		if err := s.conversations.Add(ctx, user.ID, sess.RecordID, reply, false); err != nil {
			s.log.Error("persist assistant turn", "user", user.ID, "err", err)
		}
	}

	if err := s.events.Log(ctx, user.ID, "message_sent", user.Language); err != nil {
		s.log.Error("log message event", "user", user.ID, "err", err)
	}

	return reply
}

// GenerateStory produces one sleep story in the user's locale.
func (s *ChatService) GenerateStory(ctx context.Context, user *models.User) (string, error) {
	prompt, ok := storyPrompts[user.Language]
	if !ok {
		prompt = storyPrompts["en"]
	}
	story, err := s.groq.ChatCompletion(ctx, systemPrompt(user.Language), []groq.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	if err := s.events.Log(ctx, user.ID, "story_generated", user.Language); err != nil {
		s.log.Error("log story event", "user", user.ID, "err", err)
	}
	return story, nil
}

// Transcribe converts voice bytes to text, degrading to a placeholder.
func (s *ChatService) Transcribe(ctx context.Context, audio []byte, lang string) string {
	text, err := s.groq.Transcribe(ctx, audio, lang)
	if err != nil {
		s.log.Error("transcription failed", "err", err)
		return transcriptPlaceholder
	}
	return text
}

func systemPrompt(lang string) string {
	if p, ok := systemPrompts[lang]; ok {
		return p
	}
	return defaultSystemPrompt
}
