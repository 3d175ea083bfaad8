package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/velvetlab/nightwhisper/internal/config"
)

// Client talks to the Groq OpenAI-compatible API for chat completions and
// audio transcription. Calls are never retried; on any failure the caller
// substitutes a fixed fallback.
type Client struct {
	apiKey       string
	baseURL      string
	chatModel    string
	whisperModel string
	httpClient   *http.Client
	log          *slog.Logger
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewClient(cfg config.Config, log *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		apiKey:       cfg.GroqAPIKey,
		baseURL:      strings.TrimRight(cfg.GroqBaseURL, "/"),
		chatModel:    cfg.ChatModel,
		whisperModel: cfg.WhisperModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// ChatCompletion sends the system prompt plus the conversation turns and
// returns the generated reply text.
func (c *Client) ChatCompletion(ctx context.Context, system string, turns []Message) (string, error) {
	payload := map[string]any{
		"model":       c.chatModel,
		"messages":    append([]Message{{Role: "system", Content: system}}, turns...),
		"temperature": 0.7,
		"max_tokens":  250,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	url := c.baseURL + "/openai/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post chat completion: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.log.Error("groq chat failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return "", fmt.Errorf("groq error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty chat completion response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Transcribe sends raw OGG voice bytes to the whisper endpoint and returns
// the best-effort transcript.
func (c *Client) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", "voice.ogg")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := form.WriteField("model", c.whisperModel); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if language != "" {
		if err := form.WriteField("language", language); err != nil {
			return "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	url := c.baseURL + "/openai/v1/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("post transcription: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		c.log.Error("groq transcription failed", "status", resp.StatusCode, "body", truncateBody(rawBody))
		return "", fmt.Errorf("groq error: status=%d body=%s", resp.StatusCode, truncateBody(rawBody))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w (body=%s)", err, truncateBody(rawBody))
	}
	if parsed.Text == "" {
		return "", fmt.Errorf("empty transcript")
	}
	return parsed.Text, nil
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
