package groupme

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// MaxTextLength — ограничение Bot API GroupMe на длину сообщения (в символах).
const MaxTextLength = 1000

var ErrNotConfigured = errors.New("groupme: bot id not configured")

// StatusError — ответ Bot API с кодом вне 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("groupme: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Notifier отправляет сообщения в группу от имени бота.
type Notifier struct {
	httpClient *http.Client
	postURL    string
	botID      string
	logger     *zap.SugaredLogger
}

func NewNotifier(postURL, botID string, timeout time.Duration, logger *zap.SugaredLogger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		httpClient: &http.Client{Timeout: timeout},
		postURL:    postURL,
		botID:      botID,
		logger:     logger,
	}
}

type postRequest struct {
	BotID string `json:"bot_id"`
	Text  string `json:"text"`
}

// Send публикует text одной попыткой, без повторов.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n.botID == "" {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(postRequest{BotID: n.botID, Text: truncate(text, MaxTextLength)})
	if err != nil {
		return fmt.Errorf("groupme: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.postURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("groupme: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("groupme: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	n.logger.Infow("GroupMe message sent", "text", truncate(text, 80))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
