// Package telegram is a minimal Telegram Bot API client: long polling for
// updates and sending text messages to one chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	ParseModeHTML  = "HTML"
)

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// RetryBase is the first backoff step; it doubles per attempt.
	RetryBase  time.Duration
	MaxRetries int
}

func NewClient(token, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Must exceed the getUpdates long-polling timeout.
			Timeout: 90 * time.Second,
		},
		logger:     logger,
		RetryBase:  time.Second,
		MaxRetries: 3,
	}
}

// call invokes a Bot API method and decodes its result into out.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}
	url := c.baseURL + "/bot" + c.token + "/" + method

	c.logger.Debug("telegram API request", "method", method)

	var (
		resp         *http.Response
		requestStart = time.Now()
	)
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if attempt == c.MaxRetries {
				c.logger.Error("telegram request transport error", "method", method, "error", redact(err, c.token), "elapsed", time.Since(requestStart))
				return fmt.Errorf("sending %s: %w", method, redact(err, c.token))
			}
			c.logger.Debug("telegram transport error, retrying", "method", method, "attempt", attempt+1, "error", redact(err, c.token))
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			wait := c.backoff(attempt)
			if resp.StatusCode == http.StatusTooManyRequests {
				wait = max(wait, retryAfter(resp.Body))
			}
			resp.Body.Close()
			if attempt == c.MaxRetries {
				c.logger.Error("telegram request failed after retries", "method", method, "status", resp.StatusCode, "attempts", c.MaxRetries+1, "elapsed", time.Since(requestStart))
				return fmt.Errorf("telegram %s returned status %d after %d retries", method, resp.StatusCode, c.MaxRetries)
			}
			c.logger.Debug("telegram retryable status", "method", method, "status", resp.StatusCode, "attempt", attempt+1, "wait", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}
		break
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	c.logger.Debug("telegram API response", "method", method, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(requestStart))

	var env response
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parsing %s response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		c.logger.Error("telegram request rejected", "method", method, "code", env.ErrorCode, "description", env.Description)
		return &APIError{Method: method, Code: env.ErrorCode, Description: env.Description}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("parsing %s result: %w", method, err)
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * c.RetryBase
}

// retryAfter reads the wait a 429 envelope asks for. Zero when absent.
func retryAfter(body io.Reader) time.Duration {
	var env response
	if err := json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&env); err != nil || env.Parameters == nil {
		return 0
	}
	return time.Duration(env.Parameters.RetryAfter) * time.Second
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// redact strips the bot token, which net/http includes in URL errors.
func redact(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}

func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var me User
	if err := c.call(ctx, "getMe", struct{}{}, &me); err != nil {
		return nil, fmt.Errorf("getting bot identity: %w", err)
	}
	return &me, nil
}

// GetUpdates long-polls for message updates with ID >= offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout int) ([]Update, error) {
	var updates []Update
	req := getUpdatesRequest{Offset: offset, Timeout: timeout, AllowedUpdates: []string{"message"}}
	if err := c.call(ctx, "getUpdates", req, &updates); err != nil {
		return nil, fmt.Errorf("getting updates: %w", err)
	}
	return updates, nil
}

func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	var msg Message
	if err := c.call(ctx, "sendMessage", req, &msg); err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	return &msg, nil
}

// Reply answers msg in its chat, quoting it.
func (c *Client) Reply(ctx context.Context, msg *Message, text string) error {
	_, err := c.SendMessage(ctx, SendMessageRequest{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &ReplyParameters{MessageID: msg.MessageID},
	})
	return err
}

// Sender posts messages to a fixed chat.
type Sender struct {
	Client    *Client
	ChatID    int64
	ParseMode string
}

func (s Sender) Send(ctx context.Context, text string) error {
	_, err := s.Client.SendMessage(ctx, SendMessageRequest{
		ChatID:             s.ChatID,
		Text:               text,
		ParseMode:          s.ParseMode,
		LinkPreviewOptions: &LinkPreviewOptions{IsDisabled: true},
	})
	return err
}
