package openrouter

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

	"github.com/cenkalti/backoff/v4"
)

const DefaultBaseURL = "https://openrouter.ai/api/v1/"

var (
	// ErrUnsupportedContent is returned when the completion carries content
	// parts instead of a plain text message.
	ErrUnsupportedContent = errors.New("unsupported message content type: parts")
	ErrEmptyResponse      = errors.New("empty response choices")
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration // per attempt
	MaxRetries int
	// RetryInterval is the first backoff wait; it grows exponentially.
	RetryInterval time.Duration
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	opts    Options
	client  *http.Client
}

func NewClient(apiKey, model string, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = time.Second
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: opts.BaseURL,
		opts:    opts,
		client:  &http.Client{},
	}
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(url string) {
	c.baseURL = url
}

func (c *Client) Model() string { return c.model }

type textPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type imageURL struct {
	URL string `json:"url"`
}

type imagePart struct {
	Type     string   `json:"type"`
	ImageURL imageURL `json:"image_url"`
}

type message struct {
	Role    string `json:"role"`
	Content []any  `json:"content"`
}

type request struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type response struct {
	Choices []struct {
		Message struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// StatusError is a non-200 answer from the API.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error %d", e.StatusCode)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Complete sends one user message made of the prompt text and one image
// (a data URI or URL) and returns the text of the first choice. Transient
// failures are retried with exponential backoff up to MaxRetries times.
func (c *Client) Complete(ctx context.Context, prompt, image string) (string, error) {
	reqBody := request{
		Model: c.model,
		Messages: []message{{
			Role: "user",
			Content: []any{
				textPart{Type: "text", Text: prompt},
				imagePart{Type: "image_url", ImageURL: imageURL{URL: image}},
			},
		}},
		Stream: false,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.RetryInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.MaxRetries)), ctx)

	return backoff.RetryWithData(func() (string, error) {
		text, err := c.attempt(ctx, body)
		if err == nil {
			return text, nil
		}
		if ctx.Err() == nil && retryable(err) {
			return "", err
		}
		return "", backoff.Permanent(err)
	}, policy)
}

// retryable covers transport failures, rate limiting and server errors.
func retryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Temporary()
}

type transportError struct{ err error }

func (e *transportError) Error() string { return "api call: " + e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func (c *Client) attempt(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	url := strings.TrimSuffix(c.baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Title", "ticketcal")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &transportError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &transportError{err: err}
	}

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{StatusCode: resp.StatusCode}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			se.Message = errResp.Error.Message
		} else {
			se.Message = string(respBody)
		}
		return "", se
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	content := bytes.TrimSpace(apiResp.Choices[0].Message.Content)
	if len(content) == 0 || content[0] != '"' {
		return "", ErrUnsupportedContent
	}
	var text string
	if err := json.Unmarshal(content, &text); err != nil {
		return "", fmt.Errorf("unmarshal content: %w", err)
	}
	return text, nil
}
