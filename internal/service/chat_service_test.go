package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velvetlab/nightwhisper/internal/config"
	"github.com/velvetlab/nightwhisper/internal/groq"
	"github.com/velvetlab/nightwhisper/internal/models"
	"github.com/velvetlab/nightwhisper/internal/repository"
	"github.com/velvetlab/nightwhisper/internal/session"
)

func newChatFixture(t *testing.T, baseURL string) (*ChatService, *session.Manager) {
	db := newTestDB(t)
	cfg := config.Config{
		GroqAPIKey:     "test-key",
		GroqBaseURL:    baseURL,
		ChatModel:      "llama-3.1-8b-instant",
		WhisperModel:   "whisper-large-v3",
		RequestTimeout: time.Second,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := groq.NewClient(cfg, log)
	sessions := session.NewManager(40*time.Minute, 10)
	chat := NewChatService(log, client, sessions, repository.NewConversationRepository(db), repository.NewEventRepository(db))
	return chat, sessions
}

func failingAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"over capacity"}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateStoryPropagatesFailure(t *testing.T) {
	chat, _ := newChatFixture(t, failingAPI(t).URL)

	_, err := chat.GenerateStory(context.Background(), &models.User{ID: 1, Language: "en"})
	require.Error(t, err)
}

func TestReplyFallsBackOnFailure(t *testing.T) {
	chat, sessions := newChatFixture(t, failingAPI(t).URL)
	user := &models.User{ID: 1, Language: "de"}
	sess := sessions.Start(user.ID, models.KindChat, 0)

	reply := chat.Reply(context.Background(), user, sess, "ich kann nicht schlafen")
	require.Equal(t, Fallback("de"), reply)

	// The failed exchange still lands in the conversation buffer.
	turns := sessions.Turns(user.ID)
	require.Len(t, turns, 2)
	require.Equal(t, session.RoleAssistant, turns[1].Role)
}

func TestTranscribeDegradesToPlaceholder(t *testing.T) {
	chat, _ := newChatFixture(t, failingAPI(t).URL)

	text := chat.Transcribe(context.Background(), []byte("oggdata"), "en")
	require.Equal(t, transcriptPlaceholder, text)
}
