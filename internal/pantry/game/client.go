// Package game is the HTTP client for the restaurant game's form-POST AJAX
// interface. Every response carries a {status, msg, data} envelope: a false
// status is a business rejection surfaced as *BusinessError, network
// failures are retried and then wrapped.
package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/108.0.0.0 Safari/537.36"

	defaultMaxRetries = 3
	defaultTimeout    = 8 * time.Second
	retryDelay        = time.Second
)

var brTag = regexp.MustCompile(`<br\s*/?>`)

// BusinessError is a rejection reported by the game itself: the HTTP call
// succeeded but the envelope carried status=false.
type BusinessError struct {
	Msg string
}

func (e *BusinessError) Error() string { return e.Msg }

// IsBusiness reports whether err is a game-level rejection rather than a
// transport failure.
func IsBusiness(err error) bool {
	var be *BusinessError
	return errors.As(err, &be)
}

// IsInsufficientStock reports whether a rejection message means the offered
// ingredient ran out mid-trade.
func IsInsufficientStock(msg string) bool {
	return strings.Contains(msg, "数量不足")
}

// Client talks to one game account. All calls go through a shared rate
// limiter so batches of trades stay at a human-looking pace.
type Client struct {
	baseURL    string
	key        string
	cookies    map[string]string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSessionCookie attaches the PHPSESSID session cookie.
func WithSessionCookie(sessionID string) ClientOption {
	return func(c *Client) { c.cookies["PHPSESSID"] = sessionID }
}

// WithInterval spaces requests at least interval apart.
func WithInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithMaxRetries sets how many times a network failure is retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = h }
}

// WithClientLogger sets the client's logger.
func WithClientLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a Client for the account identified by key.
func NewClient(baseURL, key string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		cookies:    make(map[string]string),
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: defaultMaxRetries,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post sends a form POST to index.php?g=Res&<action> with the account key
// injected into the payload. action names the module and handler, e.g.
// "m=Food&a=get_cupboard". The parsed envelope body is returned once status
// is true.
func (c *Client) Post(ctx context.Context, action string, form url.Values) (gjson.Result, error) {
	if form == nil {
		form = url.Values{}
	}
	form.Set("key", c.key)

	endpoint := fmt.Sprintf("%s/index.php?g=Res&%s", c.baseURL, action)
	body := form.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		raw, err := c.doOnce(ctx, endpoint, body)
		if err == nil {
			return c.checkEnvelope(raw)
		}
		if ctx.Err() != nil {
			return gjson.Result{}, ctx.Err()
		}
		lastErr = err
		c.log.Warn().Str("action", action).Int("attempt", attempt).
			Int("max", c.maxRetries).Err(err).Msg("request failed")

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return gjson.Result{}, ctx.Err()
		}
	}

	return gjson.Result{}, fmt.Errorf("game unreachable after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) doOnce(ctx context.Context, endpoint, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	for name, value := range c.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) checkEnvelope(raw []byte) (gjson.Result, error) {
	body := gjson.ParseBytes(raw)
	if !body.Get("status").Bool() {
		return gjson.Result{}, &BusinessError{Msg: CleanMessage(body.Get("msg").String())}
	}
	return body, nil
}

// CleanMessage strips the markup the game embeds in its messages.
func CleanMessage(msg string) string {
	return strings.TrimSpace(brTag.ReplaceAllString(msg, " "))
}
