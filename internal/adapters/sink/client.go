// Package sink implements the HTTP client for the notification backend.
//
// The backend exposes three routes:
//
//	POST /send_alert  {"message": ...}
//	POST /send_image  multipart file field + caption
//	GET  /health
//
// Deliveries are fire-and-forget: a failure is classified, logged by the
// caller, and never retried here.
package sink

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

	"github.com/sentrylab/vigil/pkg/logger"
)

// Default client configuration constants.
const (
	defaultTimeout = 15 * time.Second
	imageFieldName = "file"
	imageFileName  = "alert.jpg"
)

// Client talks to an alert sink over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client (tests inject one with a
// short timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) {
		if c != nil {
			s.http = c
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(s *Client) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewClient creates a sink client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger.Get().Named("sink"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendAlert delivers a text alert.
func (c *Client) SendAlert(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/send_alert", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "send_alert")
}

// SendImage delivers an image alert with a caption. The image travels as
// a multipart file field; the caption as a form field.
func (c *Client) SendImage(ctx context.Context, caption string, image []byte) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(imageFieldName, imageFileName)
	if err != nil {
		return fmt.Errorf("build image part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("write image part: %w", err)
	}
	if err := mw.WriteField("caption", caption); err != nil {
		return fmt.Errorf("write caption field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/send_image", &buf)
	if err != nil {
		return fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return c.do(req, "send_image")
}

// Health probes the sink's liveness route.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	return c.do(req, "health")
}

// do executes the request and classifies non-2xx responses as delivery
// errors carrying the sink's response snippet.
func (c *Client) do(req *http.Request, route string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDelivery, route, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%w: %s: status %d: %s",
			ErrDelivery, route, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
