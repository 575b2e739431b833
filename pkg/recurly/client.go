package recurly

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/recurly-gateway/pkg/config"
	pkgerrors "github.com/angelmondragon/recurly-gateway/pkg/errors"
)

const (
	defaultBaseURL           = "https://v3.recurly.com"
	defaultAPIVersion        = "v2021-02-25"
	defaultTimeout           = 15 * time.Second
	errorBodyReadLimit int64 = 4096
	defaultListLimit         = 200
)

var (
	ErrAPIKeyMissing    = pkgerrors.New(pkgerrors.CodeConfiguration, "The Recurly private API key is not configured.")
	ErrSubdomainMissing = pkgerrors.New(pkgerrors.CodeConfiguration, "The Recurly subdomain is not configured.")
)

// RequestObserver receives one callback per gateway call.
type RequestObserver interface {
	ObserveRequest(operation, outcome string, duration time.Duration)
}

// Client talks to the Recurly REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiVersion string
	subdomain  string
	currency   string
	observer   RequestObserver
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithObserver attaches request metrics.
func WithObserver(observer RequestObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// WithClock overrides the time source used for refund previews.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds a gateway client. Missing credentials are configuration errors.
func NewClient(cfg config.RecurlyConfig, opts ...Option) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.PrivateAPIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	subdomain := strings.TrimSpace(cfg.Subdomain)
	if subdomain == "" {
		return nil, ErrSubdomainMissing
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSpace(cfg.BaseURL),
		apiKey:     apiKey,
		apiVersion: strings.TrimSpace(cfg.APIVersion),
		subdomain:  subdomain,
		currency:   strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency)),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.apiVersion == "" {
		client.apiVersion = defaultAPIVersion
	}
	if client.currency == "" {
		client.currency = "USD"
	}
	return client, nil
}

// Subdomain returns the configured site subdomain.
func (c *Client) Subdomain() string {
	if c == nil {
		return ""
	}
	return c.subdomain
}

// DefaultCurrency returns the configured fallback currency.
func (c *Client) DefaultCurrency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

// HostedURL builds a link into the hosted Recurly pages of the configured site.
func (c *Client) HostedURL(path string) string {
	return fmt.Sprintf("https://%s.recurly.com/%s", c.Subdomain(), strings.TrimLeft(path, "/"))
}

type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	body      any
	accept    string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	if c == nil {
		return ErrAPIKeyMissing
	}

	start := time.Now()
	outcome := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(req.operation, outcome, time.Since(start))
		}
	}()

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = outcomeFor(resp.StatusCode)
		return decodeError(req.operation, resp)
	}
	outcome = "ok"

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		outcome = "decode_error"
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s response", req.operation))
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, req request) ([]byte, error) {
	if c == nil {
		return nil, ErrAPIKeyMissing
	}

	start := time.Now()
	outcome := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveRequest(req.operation, outcome, time.Since(start))
		}
	}()

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = outcomeFor(resp.StatusCode)
		return nil, decodeError(req.operation, resp)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("read %s response", req.operation))
	}
	outcome = "ok"
	return payload, nil
}

func (c *Client) send(ctx context.Context, req request) (*http.Response, error) {
	target := c.buildURL(req.path)
	if len(req.query) > 0 {
		target = target + "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("marshal %s request", req.operation))
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("build %s request", req.operation))
	}

	accept := req.accept
	if accept == "" {
		accept = fmt.Sprintf("application/vnd.recurly.%s+json", c.apiVersion)
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.SetBasicAuth(c.apiKey, "")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("execute %s request", req.operation))
	}
	return resp, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}

func accountPath(code string) string {
	return "accounts/code-" + url.PathEscape(strings.TrimSpace(code))
}

func subscriptionPath(uuid string) string {
	return "subscriptions/uuid-" + url.PathEscape(strings.TrimSpace(uuid))
}
