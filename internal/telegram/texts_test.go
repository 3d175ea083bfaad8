package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetTextFallsBackToRussian(t *testing.T) {
	require.Equal(t, texts["en"]["welcome"], getText("en", "welcome"))
	require.Equal(t, texts["ru"]["welcome"], getText("fr", "welcome"))
	require.Equal(t, "no_such_key", getText("en", "no_such_key"))
}

func TestNormalizeLang(t *testing.T) {
	tests := []struct {
		hint string
		want string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"DE", "de"},
		{"es_MX", "es"},
		{"fr", "ru"},
		{"", "ru"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, normalizeLang(tt.hint, "ru"), "hint %q", tt.hint)
	}
}

func TestGreetingKeyBuckets(t *testing.T) {
	require.Equal(t, "night_greeting_22", greetingKey(time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)))
	require.Equal(t, "night_greeting_0", greetingKey(time.Date(2026, 8, 28, 2, 0, 0, 0, time.UTC)))
	require.Equal(t, "night_greeting_5", greetingKey(time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)))
}

func TestPreviewTranscriptTruncates(t *testing.T) {
	short := "could not sleep again"
	require.Equal(t, short, previewTranscript(short))

	long := strings.Repeat("я ", 100)
	preview := previewTranscript(long)
	require.True(t, strings.HasSuffix(preview, "…"))
	require.Equal(t, 80, len([]rune(preview))-1)
}
