// Package telegram is a focused Bot API client: send text, send document and
// webhook management.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"steelcraft-site/internal/domain"
)

const defaultBaseURL = "https://api.telegram.org"

// ErrNotConfigured is returned by webhook management calls when no bot token
// is available. Send calls treat a missing token as a no-op instead.
var ErrNotConfigured = errors.New("telegram: bot token not configured")

// APIError captures non-2xx or ok=false Bot API responses.
type APIError struct {
	StatusCode  int
	Method      string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: %s failed with status %d: %s", e.Method, e.StatusCode, e.Description)
}

func (e *APIError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource

	mu    sync.Mutex
	token string
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. The token is resolved on first use and cached
// once a non-empty value has been obtained.
func NewClient(tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("telegram: token source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolveToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	return token, nil
}

// SendMessage sends HTML-formatted text and returns the provider message id.
// Without a token it does nothing and returns 0.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	token, err := c.resolveToken(ctx)
	if err != nil || token == "" {
		return 0, err
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return 0, fmt.Errorf("telegram: marshal sendMessage: %w", err)
	}
	req, err := c.newRequest(ctx, token, "sendMessage", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	var sent sentMessage
	if err := c.do(req, "sendMessage", &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// SendDocument uploads doc with a caption. Without a token it does nothing and
// returns 0.
func (c *Client) SendDocument(ctx context.Context, chatID int64, doc domain.Attachment, caption string) (int64, error) {
	token, err := c.resolveToken(ctx)
	if err != nil || token == "" {
		return 0, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return 0, fmt.Errorf("telegram: write chat_id: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return 0, fmt.Errorf("telegram: write caption: %w", err)
		}
	}
	name := doc.Name
	if name == "" {
		name = "file"
	}
	part, err := w.CreateFormFile("document", name)
	if err != nil {
		return 0, fmt.Errorf("telegram: create document part: %w", err)
	}
	if _, err := part.Write(doc.Data); err != nil {
		return 0, fmt.Errorf("telegram: write document: %w", err)
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("telegram: close multipart: %w", err)
	}

	req, err := c.newRequest(ctx, token, "sendDocument", &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var sent sentMessage
	if err := c.do(req, "sendDocument", &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) SetWebhook(ctx context.Context, cfg WebhookConfig) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return errors.New("telegram: webhook url must not be empty")
	}
	return c.callJSON(ctx, "setWebhook", cfg, nil)
}

func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.callJSON(ctx, "deleteWebhook", struct{}{}, nil)
}

func (c *Client) WebhookInfo(ctx context.Context) (WebhookInfo, error) {
	var info WebhookInfo
	if err := c.callJSON(ctx, "getWebhookInfo", struct{}{}, &info); err != nil {
		return WebhookInfo{}, err
	}
	return info, nil
}

func (c *Client) callJSON(ctx context.Context, method string, payload, out any) error {
	token, err := c.resolveToken(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrNotConfigured
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram: marshal %s: %w", method, err)
	}
	req, err := c.newRequest(ctx, token, method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, method, out)
}

func (c *Client) newRequest(ctx context.Context, token, method string, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + "/bot" + token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	return req, nil
}

// do executes req and decodes the result into out. Transport errors are
// unwrapped from *url.Error so the token in the URL is never logged.
func (c *Client) do(req *http.Request, method string, out any) error {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	var payload apiResponse
	decErr := json.Unmarshal(raw, &payload)
	if res.StatusCode < 200 || res.StatusCode >= 300 || decErr != nil || !payload.OK {
		desc := payload.Description
		if desc == "" {
			desc = strings.TrimSpace(string(raw))
			if len(desc) > 512 {
				desc = desc[:512]
			}
		}
		return &APIError{StatusCode: res.StatusCode, Method: method, Description: desc}
	}

	if out != nil && len(payload.Result) > 0 {
		if err := json.Unmarshal(payload.Result, out); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}
