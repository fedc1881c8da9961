// Package client reaches a running athlete server's thread endpoints. It
// implements assistant.Backend so the conversation service can drive a remote
// server the same way it drives the vendor.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desktopathlete/athlete/internal/assistant"
	"github.com/desktopathlete/athlete/pkg/httpext"
	"github.com/desktopathlete/athlete/pkg/logger"
)

const defaultTimeout = 30 * time.Second

var _ assistant.Backend = (*Client)(nil)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New returns a Client for the server at baseURL, e.g. http://localhost:8080
func New(baseURL string, options ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, option := range options {
		option(c)
	}
	return c, nil
}

func (c *Client) CreateThread(ctx context.Context, seed string) (*assistant.Thread, error) {
	var thread assistant.Thread
	body := map[string]string{"initial_message": seed}
	if err := c.do(ctx, "create thread", http.MethodPost, "/v1/threads", body, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

func (c *Client) CreateMessage(ctx context.Context, threadID, content string) (*assistant.Message, error) {
	var msg assistant.Message
	body := map[string]string{"question": content}
	if err := c.do(ctx, "create message", http.MethodPost, threadPath(threadID, "messages"), body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	var run assistant.Run
	body := map[string]string{}
	if assistantID != "" {
		body["assistant_id"] = assistantID
	}
	if err := c.do(ctx, "create run", http.MethodPost, threadPath(threadID, "runs"), body, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	var run assistant.Run
	if err := c.do(ctx, "retrieve run", http.MethodGet, threadPath(threadID, "runs", runID), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

func (c *Client) ListMessages(ctx context.Context, threadID string) ([]assistant.Message, error) {
	var list struct {
		Messages []assistant.Message `json:"messages"`
	}
	if err := c.do(ctx, "list messages", http.MethodGet, threadPath(threadID, "messages"), nil, &list); err != nil {
		return nil, err
	}
	return list.Messages, nil
}

func threadPath(threadID string, parts ...string) string {
	segments := []string{"/v1/threads", url.PathEscape(threadID)}
	for _, part := range parts {
		segments = append(segments, url.PathEscape(part))
	}
	return strings.Join(segments, "/")
}

// do sends one request and decodes a 2xx body into out. Any other status
// becomes an *assistant.UpstreamError carrying the server's error message.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &assistant.UpstreamError{Op: op, StatusCode: http.StatusBadGateway, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp httpext.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp)

		logger.Debug(logger.CLI, "%s %s returned %d: %s", method, path, resp.StatusCode, errResp.Error)
		return &assistant.UpstreamError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errResp.Error,
			Err:        fmt.Errorf("%s %s: %s", method, path, resp.Status),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &assistant.UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
