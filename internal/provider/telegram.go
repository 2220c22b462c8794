package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
)

// sendMessageRequest is the JSON body of the Bot API sendMessage call.
type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// sendMessageResponse maps the Bot API envelope.
type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// TelegramSender delivers notifications through the Telegram Bot API.
// The base URL is injected from config so tests can point to a local mock.
type TelegramSender struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

func NewTelegramSender(baseURL, token, chatID string, timeout time.Duration) *TelegramSender {
	return &TelegramSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *TelegramSender) Channel() domain.Channel { return domain.ChannelTelegram }

// Send posts the message to sendMessage and expects 200 with "ok": true.
func (s *TelegramSender) Send(ctx context.Context, n *domain.Notification) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID: s.chatID,
		Text:   fmt.Sprintf("Notification from %s\n\n%s", n.Source, n.Message),
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// The token is part of the URL; keep it out of logs.
		return fmt.Errorf("send request: %w", redactToken(err, s.token))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected telegram status: %d", resp.StatusCode)
	}

	var out sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("telegram rejected message: %s", out.Description)
	}
	return nil
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redactToken(err error, token string) error {
	if token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<redacted>"), err: err}
}

// compile-time check that TelegramSender implements Sender
var _ Sender = (*TelegramSender)(nil)
