// Package yolo implements the Detector capability against a remote YOLO
// inference service. The service accepts a JPEG frame and returns the
// detections as JSON; confidence and IoU thresholds ride along as query
// parameters.
package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sentrylab/vigil/internal/domain/model"
)

// Default client configuration constants.
const (
	defaultTimeout = 30 * time.Second
	frameFieldName = "file"
	frameFileName  = "frame.jpg"
)

// Client posts frames to a YOLO inference service.
type Client struct {
	baseURL string
	conf    float64
	iou     float64
	http    *http.Client
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithThresholds sets the confidence and IoU thresholds forwarded to the
// service.
func WithThresholds(conf, iou float64) Option {
	return func(c *Client) {
		if conf > 0 {
			c.conf = conf
		}
		if iou > 0 {
			c.iou = iou
		}
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a detector client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		conf:    0.5,
		iou:     0.5,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// detectionResponse mirrors the service's JSON schema.
type detectionResponse struct {
	Detections []model.Detection `json:"detections"`
}

// Detect posts one frame and decodes the detections. Failures are
// returned to the caller, which treats them as no-detection for the
// frame.
func (c *Client) Detect(ctx context.Context, f model.Frame) ([]model.Detection, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(frameFieldName, frameFileName)
	if err != nil {
		return nil, fmt.Errorf("build frame part: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, fmt.Errorf("write frame part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	q := url.Values{}
	q.Set("conf", strconv.FormatFloat(c.conf, 'f', -1, 64))
	q.Set("iou", strconv.FormatFloat(c.iou, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/detect?"+q.Encode(), &buf)
	if err != nil {
		return nil, fmt.Errorf("build detect request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("detect status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return out.Detections, nil
}
