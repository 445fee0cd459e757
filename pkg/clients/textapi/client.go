package textapi

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

	"github.com/de-tools/site-report/pkg/models/domain"
	"github.com/rs/zerolog"
)

// Client talks to the speech-to-text and title endpoints of the text API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout bounds every request. A client passed via WithHTTPClient is
// copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("textapi: base url is required")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, e.Message)
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type titleRequest struct {
	Text string `json:"text"`
}

type titleResponse struct {
	Title string `json:"title"`
}

// Transcribe uploads audio as the multipart field audio_file and returns the
// recognised text.
func (c *Client) Transcribe(ctx context.Context, audio *domain.Blob) (string, error) {
	if audio == nil || len(audio.Data) == 0 {
		return "", fmt.Errorf("transcribe: %w: audio", domain.ErrMissingPayload)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio_file", audioFilename(audio))
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if _, err := part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	var res transcriptionResponse
	if err := c.do(ctx, "transcribe", "/stt", w.FormDataContentType(), &body, &res); err != nil {
		return "", err
	}
	return res.Text, nil
}

// Title asks for a short title summarising text.
func (c *Client) Title(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(titleRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("title: %w", err)
	}

	var res titleResponse
	if err := c.do(ctx, "title", "/title", "application/json", bytes.NewReader(payload), &res); err != nil {
		return "", err
	}
	return res.Title, nil
}

func (c *Client) do(ctx context.Context, operation, path, contentType string, body io.Reader, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", contentType)

	zerolog.Ctx(ctx).Debug().Str("operation", operation).Str("url", req.URL.String()).Msg("text api request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(msg) == 0 {
			msg = []byte(resp.Status)
		}
		return &APIError{Operation: operation, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func audioFilename(b *domain.Blob) string {
	ext := ".webm"
	switch b.ContentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		ext = ".wav"
	case "audio/mpeg":
		ext = ".mp3"
	case "audio/ogg":
		ext = ".ogg"
	case "audio/mp4", "audio/m4a", "audio/x-m4a":
		ext = ".m4a"
	}
	return "recording" + ext
}
