// Package api is the gateway to the budget backend's REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the development backend.
	DefaultBaseURL = "http://localhost:8000/api/"

	defaultTimeout    = 15 * time.Second
	defaultCSRFCookie = "csrftoken"
	defaultCSRFHeader = "X-CSRFToken"
	sessionCookieName = "sessionid"
	maxBodySize       = 4 << 20 // 4 MB
	userAgent         = "controlants/1.0"
)

// TokenSource supplies the anti-forgery token attached to mutating requests.
type TokenSource interface {
	Token() (string, bool)
}

// CookieTokenSource reads the token from a cookie jar.
type CookieTokenSource struct {
	Jar  http.CookieJar
	URL  *url.URL
	Name string
}

// Token returns the cookie value, if the jar holds one for URL.
func (s CookieTokenSource) Token() (string, bool) {
	if s.Jar == nil || s.URL == nil {
		return "", false
	}
	for _, c := range s.Jar.Cookies(s.URL) {
		if c.Name == s.Name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	SessionCookie  string
	CSRFCookieName string
	CSRFHeaderName string
	Logger         logrus.FieldLogger
	HTTPClient     *http.Client
	Tokens         TokenSource
}

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	base       *url.URL
	http       *http.Client
	tokens     TokenSource
	csrfHeader string
	timeout    time.Duration
	log        logrus.FieldLogger

	initMu   sync.Mutex
	initDone bool
}

// New builds a client. A cookie jar is installed when the HTTP client has none,
// so the cookie set by the CSRF endpoint is replayed on later requests.
func New(opts Options) (*Client, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	if raw == "" {
		raw = DefaultBaseURL
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("api: parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", raw)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("api: creating cookie jar: %w", err)
		}
		hc.Jar = jar
	}
	if opts.SessionCookie != "" {
		hc.Jar.SetCookies(base, []*http.Cookie{{Name: sessionCookieName, Value: opts.SessionCookie, Path: "/"}})
	}

	cookieName := opts.CSRFCookieName
	if cookieName == "" {
		cookieName = defaultCSRFCookie
	}
	header := opts.CSRFHeaderName
	if header == "" {
		header = defaultCSRFHeader
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = CookieTokenSource{Jar: hc.Jar, URL: base, Name: cookieName}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Client{
		base:       base,
		http:       hc,
		tokens:     tokens,
		csrfHeader: header,
		timeout:    timeout,
		log:        log.WithField("component", "api"),
	}, nil
}

// BaseURL returns the resolved API root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Init performs the one-time CSRF handshake. Success is remembered for the
// lifetime of the client; a failure leaves the next call free to retry.
func (c *Client) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initDone {
		return nil
	}
	if _, err := c.do(ctx, http.MethodGet, "csrf/", nil, nil); err != nil {
		return err
	}
	c.initDone = true
	return nil
}

// Get fetches path and decodes the body into out (which may be nil).
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

// Post sends payload as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, payload, out any) error {
	return c.mutate(ctx, http.MethodPost, path, payload, out)
}

// Put replaces the resource at path.
func (c *Client) Put(ctx context.Context, path string, payload, out any) error {
	return c.mutate(ctx, http.MethodPut, path, payload, out)
}

// Patch partially updates the resource at path.
func (c *Client) Patch(ctx context.Context, path string, payload, out any) error {
	return c.mutate(ctx, http.MethodPatch, path, payload, out)
}

// Delete removes (or deactivates) the resource at path.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.mutate(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) mutate(ctx context.Context, method, path string, payload, out any) error {
	if err := c.Init(ctx); err != nil {
		return err
	}
	body, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return err
	}
	return decode(path, body, out)
}

// do executes one request and returns the raw body of a 2xx response.
// Failures are logged here and returned unchanged; nothing is retried.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ref := &url.URL{Path: strings.TrimPrefix(path, "/")}
	if len(query) > 0 {
		ref.RawQuery = query.Encode()
	}
	target := c.base.ResolveReference(ref)

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("api: encoding %s %s payload: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("api: creating request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", reqID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet && method != http.MethodHead {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set(c.csrfHeader, token)
			req.Header.Set("Referer", c.base.String())
		}
	}

	entry := c.log.WithFields(logrus.Fields{
		"method":     method,
		"path":       target.Path,
		"request_id": reqID,
	})

	start := time.Now()
	//nolint:gosec // URL is resolved against the configured base
	resp, err := c.http.Do(req)
	if err != nil {
		ne := &NetworkError{Method: method, Path: path, Message: networkMessage(err), Err: err}
		if errors.Is(err, context.Canceled) {
			entry.WithError(err).Debug("request canceled")
		} else {
			entry.WithError(err).Error("network error")
		}
		return nil, ne
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		entry.WithError(err).Error("network error")
		return nil, &NetworkError{Method: method, Path: path, Message: "reading response: " + err.Error(), Err: err}
	}

	entry = entry.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		entry.WithField("body", truncate(string(body), 500)).Error("api error")
		return nil, &RequestError{Method: method, Path: path, Status: resp.StatusCode, Body: body}
	}

	entry.Debug("request ok")
	return body, nil
}

func decode(path string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, path, err)
	}
	return nil
}

func networkMessage(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
