// Package ollama asks an Ollama server for recipe drafts.
package ollama

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Clark-Hu/bakatarta/internal/metrics"
)

var (
	// ErrNoMessages is returned when Generate is called without messages.
	ErrNoMessages = errors.New("ollama: messages are required")
	// ErrBadResponse is returned when the reply does not carry a JSON object.
	ErrBadResponse = errors.New("ollama: malformed response")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("ollama: temporarily unavailable")
)

// StatusError reports a non-2xx reply from the server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama: server returned %d", e.StatusCode)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=system user assistant"`
	Content string `json:"content" validate:"required"`
}

// Generator produces a recipe draft from a chat transcript.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (json.RawMessage, error)
}

// Options configures an HTTPClient.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  zerolog.Logger
	// FailureThreshold consecutive failures open the breaker; 3 when zero.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open; 30s when zero.
	OpenTimeout time.Duration
}

// HTTPClient implements Generator over the Ollama chat API.
type HTTPClient struct {
	baseURL *url.URL
	model   string
	client  *http.Client
	logger  zerolog.Logger
	cb      *gobreaker.CircuitBreaker[json.RawMessage]
}

// NewHTTPClient constructs a client for the server at opts.BaseURL.
func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("ollama url is empty")
	}
	parsed, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("ollama url must be http or https")
	}
	if opts.Model == "" {
		opts.Model = "llama3"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	logger := opts.Logger.With().Str("component", "ollama").Logger()
	threshold := opts.FailureThreshold
	metrics.OllamaBreakerState.Set(0)

	cb := gobreaker.NewCircuitBreaker[json.RawMessage](gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.OllamaBreakerState.Set(stateValue(to))
		},
	})

	return &HTTPClient{
		baseURL: parsed,
		model:   opts.Model,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: opts.Timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
		cb:     cb,
	}, nil
}

// Generate sends messages to /api/chat with JSON output forced and returns
// the object the model produced.
func (c *HTTPClient) Generate(ctx context.Context, messages []Message) (json.RawMessage, error) {
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	start := time.Now()
	draft, err := c.cb.Execute(func() (json.RawMessage, error) {
		return c.chat(ctx, messages)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordOllama("rejected", 0)
		return nil, ErrUnavailable
	case err != nil:
		metrics.RecordOllama("failure", time.Since(start))
		c.logger.Error().Err(err).Msg("recipe generation failed")
		return nil, err
	}
	metrics.RecordOllama("success", time.Since(start))
	return draft, nil
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Format   string    `json:"format"`
}

func (c *HTTPClient) chat(ctx context.Context, messages []Message) (json.RawMessage, error) {
	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages, Stream: false, Format: "json"})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL.ResolveReference(&url.URL{Path: "/api/chat"})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().Int("status", resp.StatusCode).Str("body", truncate(string(payload), 512)).Msg("unexpected status")
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(payload), 512)}
	}
	return decodeDraft(payload)
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// decodeDraft extracts message.content and requires it to be a JSON object.
func decodeDraft(payload []byte) (json.RawMessage, error) {
	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	content := bytes.TrimSpace([]byte(resp.Message.Content))
	if len(content) == 0 || content[0] != '{' {
		return nil, fmt.Errorf("%w: content is not a JSON object", ErrBadResponse)
	}
	var obj map[string]any
	if err := json.Unmarshal(content, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return json.RawMessage(content), nil
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
