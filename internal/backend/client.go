package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/five82/ticketbook/internal/metrics"
	"github.com/five82/ticketbook/internal/result"
)

const (
	defaultBaseURL      = "http://localhost:8080"
	defaultUserAgent    = "ticketbook/0.1"
	defaultTimeout      = 20 * time.Second
	defaultHeavyTimeout = 90 * time.Second
	pingTimeout         = 5 * time.Second
)

// Options configure a Client. Zero values use defaults.
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	HeavyTimeout time.Duration
	// Token returns the bearer token to send, or "" for none.
	Token func() string
	// OnUnauthorized runs after a 401 so the caller can drop its tokens.
	OnUnauthorized func()
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
}

// Client talks to the ticket journal HTTP API.
type Client struct {
	baseURL        *url.URL
	http           *http.Client
	userAgent      string
	timeout        time.Duration
	heavyTimeout   time.Duration
	token          func() string
	onUnauthorized func()
	breaker        *gobreaker.CircuitBreaker[struct{}]
	log            zerolog.Logger
	metrics        *metrics.Metrics
}

// NewClient builds a Client for opts.BaseURL.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:        base,
		http:           opts.HTTPClient,
		userAgent:      defaultUserAgent,
		timeout:        opts.Timeout,
		heavyTimeout:   opts.HeavyTimeout,
		token:          opts.Token,
		onUnauthorized: opts.OnUnauthorized,
		log:            opts.Logger,
		metrics:        opts.Metrics,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.heavyTimeout <= 0 {
		c.heavyTimeout = defaultHeavyTimeout
	}
	if c.token == nil {
		c.token = func() string { return "" }
	}
	c.breaker = newBreaker("ticketbook-api", c.log, c.metrics)
	return c, nil
}

// request describes one API call.
type request struct {
	op     string
	method string
	path   string
	body   any
	userID string
	heavy  bool
	public bool
}

// envelope is the response wrapper used by the API. Success is nil when the
// body is plain JSON without a wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Field   string         `json:"field"`
		Details map[string]any `json:"details"`
	} `json:"error"`
	Message string `json:"message"`
}

// do runs rq through the circuit breaker and decodes the payload into dest.
func (c *Client) do(ctx context.Context, rq request, dest any) *result.AppError {
	started := time.Now()
	_, err := c.breaker.Execute(func() (struct{}, error) {
		if appErr := c.send(ctx, rq, dest); appErr != nil {
			return struct{}{}, appErr
		}
		return struct{}{}, nil
	})

	var appErr *result.AppError
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		appErr = result.Network("backend unavailable")
		appErr.Code = "CIRCUIT_OPEN"
	default:
		appErr = result.From(err)
	}
	c.metrics.ObserveCall(rq.op, started, appErr)
	if appErr != nil {
		c.log.Debug().Str("op", rq.op).Str("kind", string(appErr.Kind)).Msg(appErr.Message)
	}
	return appErr
}

func (c *Client) send(ctx context.Context, rq request, dest any) *result.AppError {
	timeout := c.timeout
	if rq.heavy {
		timeout = c.heavyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if rq.body != nil {
		payload, err := json.Marshal(rq.body)
		if err != nil {
			return result.Unknown(fmt.Sprintf("encode request: %v", err))
		}
		body = bytes.NewReader(payload)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: rq.path})
	req, err := http.NewRequestWithContext(ctx, rq.method, reqURL.String(), body)
	if err != nil {
		return result.Unknown(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !rq.public {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if rq.userID != "" {
		req.Header.Set("X-User-Id", rq.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(ctx, err)
	}

	var env envelope
	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	if isJSON && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			// A bare JSON array or scalar is a payload without a wrapper.
			env = envelope{Data: raw}
		}
	}

	if resp.StatusCode >= 400 {
		return c.statusError(resp.StatusCode, env, raw)
	}
	if env.Success != nil && !*env.Success {
		return c.statusError(http.StatusBadRequest, env, raw)
	}
	if dest == nil || !isJSON {
		return nil
	}

	data := env.Data
	if env.Success == nil && len(data) == 0 {
		data = raw
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		appErr := result.Unknown(fmt.Sprintf("decode response: %v", err))
		appErr.Code = "PARSE_ERROR"
		return appErr
	}
	return nil
}

func transportError(ctx context.Context, err error) *result.AppError {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return result.Timeout("request timed out")
	}
	return result.Network(fmt.Sprintf("network error: %v", err))
}

func (c *Client) statusError(status int, env envelope, raw []byte) *result.AppError {
	message := env.Message
	var code, field string
	var details map[string]any
	if env.Error != nil {
		if env.Error.Message != "" {
			message = env.Error.Message
		}
		code, field, details = env.Error.Code, env.Error.Field, env.Error.Details
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" || strings.HasPrefix(message, "{") {
		message = http.StatusText(status)
	}

	var appErr *result.AppError
	switch {
	case status == http.StatusBadRequest:
		appErr = result.Validation(message, field)
	case status == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		appErr = result.Unauthorized(message)
	case status == http.StatusForbidden:
		appErr = result.Forbidden(message)
	case status == http.StatusNotFound:
		appErr = &result.AppError{Kind: result.KindNotFound, Message: message, Code: "NOT_FOUND"}
	case status == http.StatusConflict:
		appErr = &result.AppError{Kind: result.KindDuplicate, Message: message, Code: "DUPLICATE"}
	case status == http.StatusRequestTimeout:
		appErr = result.Timeout(message)
	case status >= 500:
		appErr = result.Server(message)
	default:
		appErr = result.Unknown(message)
	}
	if code != "" {
		appErr.Code = code
	}
	appErr.Details = details
	if appErr.Details == nil {
		appErr.Details = map[string]any{}
	}
	appErr.Details["status"] = status
	return appErr
}

// Ping checks that the API host answers HTTP at all. Any response counts as
// reachable; only transport failures are errors. It bypasses the breaker.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.baseURL.Host, err)
	}
	_ = resp.Body.Close()
	return nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		trimmed = defaultBaseURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_url %q: %w", raw, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
