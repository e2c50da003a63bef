// Package alertsink implements the notification backend daemon: the
// HTTP ingestion routes and the Telegram relay behind them.
package alertsink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Default Telegram client configuration constants.
const (
	defaultAPIBase   = "https://api.telegram.org"
	defaultTimeout   = 15 * time.Second
	photoFieldName   = "photo"
	photoFileName    = "alert.jpg"
)

// Relay forwards alerts to the destination chat.
type Relay interface {
	SendMessage(ctx context.Context, text string) error
	SendPhoto(ctx context.Context, caption string, photo []byte) error
}

// TelegramClient implements Relay over the Telegram Bot API.
type TelegramClient struct {
	apiBase string
	token   string
	chatID  string
	http    *http.Client
}

// TelegramOption applies a configuration option to the TelegramClient.
type TelegramOption func(*TelegramClient)

// WithAPIBase overrides the Bot API base URL (tests point it at a local
// server).
func WithAPIBase(base string) TelegramOption {
	return func(c *TelegramClient) {
		if base != "" {
			c.apiBase = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(h *http.Client) TelegramOption {
	return func(c *TelegramClient) {
		if h != nil {
			c.http = h
		}
	}
}

// NewTelegramClient creates a relay for the given bot token and chat.
func NewTelegramClient(token, chatID string, opts ...TelegramOption) *TelegramClient {
	c := &TelegramClient{
		apiBase: defaultAPIBase,
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiResponse mirrors the Bot API envelope.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage relays a text alert via the sendMessage method.
func (c *TelegramClient) SendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": c.chatID,
		"text":    text,
	})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.method("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "sendMessage")
}

// SendPhoto relays an image alert via the sendPhoto method.
func (c *TelegramClient) SendPhoto(ctx context.Context, caption string, photo []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(photoFieldName, photoFileName)
	if err != nil {
		return fmt.Errorf("build photo part: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("write photo part: %w", err)
	}
	if err := mw.WriteField("chat_id", c.chatID); err != nil {
		return fmt.Errorf("write chat_id field: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.method("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, "sendPhoto")
}

func (c *TelegramClient) method(name string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.apiBase, c.token, name)
}

// do executes the request and decodes the Bot API envelope.
func (c *TelegramClient) do(req *http.Request, method string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRelay, method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %w", ErrRelay, method, err)
	}

	var out apiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("%w: %s: status %d: %s",
			ErrRelay, method, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !out.OK {
		return fmt.Errorf("%w: %s: %s", ErrRelay, method, out.Description)
	}
	return nil
}
