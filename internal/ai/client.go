package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventchat/internal/config"
)

// Turn is one prior exchange handed to the model as context.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Client talks to an OpenAI-compatible chat-completions endpoint. Extraction
// calls run on a tighter timeout than reply generation; both are bounded so a
// slow provider can never hang a dialog turn.
type Client struct {
	url            string
	model          string
	extractTimeout time.Duration
	replyTimeout   time.Duration
	httpClient     *http.Client
}

func NewClient(cfg config.AIConfig) *Client {
	extract := time.Duration(cfg.ExtractTimeoutSeconds) * time.Second
	if extract == 0 {
		extract = 15 * time.Second
	}
	reply := time.Duration(cfg.ReplyTimeoutSeconds) * time.Second
	if reply == 0 {
		reply = 30 * time.Second
	}
	return &Client{
		url:            cfg.URL,
		model:          cfg.Model,
		extractTimeout: extract,
		replyTimeout:   reply,
		// Per-request timeouts come from the context; keep a generous cap here.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (c *Client) call(ctx context.Context, timeout time.Duration, messages []chatMessage) (string, error) {
	if c.url == "" {
		return "", errors.New("ai endpoint not configured")
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload := map[string]interface{}{
		"model":    c.model,
		"messages": messages,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(callCtx, "POST", c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		return "", fmt.Errorf("ai returned status %d: %s", res.StatusCode, string(b))
	}

	var respStruct struct {
		Choices []struct {
			Message struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&respStruct); err != nil {
		return "", fmt.Errorf("failed to parse ai response: %w", err)
	}
	if len(respStruct.Choices) == 0 {
		return "", errors.New("ai returned no choices")
	}
	return strings.TrimSpace(respStruct.Choices[0].Message.Content), nil
}

// historyMessages converts prior turns into chat messages, keeping at most
// the last n turns.
func historyMessages(history []Turn, n int) []chatMessage {
	if len(history) > n {
		history = history[len(history)-n:]
	}
	msgs := make([]chatMessage, 0, len(history))
	for _, t := range history {
		role := t.Role
		if role != "assistant" {
			role = "user"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: t.Content})
	}
	return msgs
}

// stripCodeFence removes a surrounding markdown code fence, which models
// frequently wrap JSON responses in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
