package truelayer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/truelayer/truelayer-go/signature"
)

const (
	SandboxBaseURL    = "https://api.truelayer-sandbox.com"
	ProductionBaseURL = "https://api.truelayer.com"
	SandboxAuthURL    = "https://auth.truelayer-sandbox.com"
	ProductionAuthURL = "https://auth.truelayer.com"

	DefaultUserAgent   = "truelayer-go/1.0"
	defaultHTTPTimeout = 30 * time.Second
)

type clientConfig struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	signer         signature.Signer
	logger         *slog.Logger
	userAgent      string
	idempotencyKey func() string
	clock          func() time.Time
}

// ClientOption customizes the [Client].
type ClientOption func(*clientConfig)

// WithBaseURL points the client at another environment, e.g. [ProductionBaseURL] or a
// local fake.
func WithBaseURL(baseURL string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		if c != nil {
			cfg.httpClient = c
		}
	}
}

// WithTokenSource sets where access tokens come from.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(cfg *clientConfig) {
		cfg.tokens = ts
	}
}

// WithSigner signs every POST request and sends the result in the Tl-Signature header.
func WithSigner(s signature.Signer) ClientOption {
	return func(cfg *clientConfig) {
		cfg.signer = s
	}
}

// WithLogger enables debug logging of requests and polling attempts.
func WithLogger(l *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.userAgent = ua
	}
}

// WithIdempotencyKeyFunc replaces the generator of Idempotency-Key values.
func WithIdempotencyKeyFunc(fn func() string) ClientOption {
	return func(cfg *clientConfig) {
		if fn != nil {
			cfg.idempotencyKey = fn
		}
	}
}

// Client calls the TrueLayer Payments API v3.
type Client struct {
	Payments       *PaymentsAPI
	ProviderReturn *ProviderReturnAPI

	cfg clientConfig
}

// NewClient builds a [Client] targeting the sandbox unless [WithBaseURL] says otherwise.
func NewClient(opts ...ClientOption) *Client {
	cfg := clientConfig{
		baseURL:        SandboxBaseURL,
		httpClient:     &http.Client{Timeout: defaultHTTPTimeout},
		logger:         slog.New(slog.DiscardHandler),
		userAgent:      DefaultUserAgent,
		idempotencyKey: uuid.NewString,
		clock:          time.Now,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	c := &Client{cfg: cfg}
	c.Payments = &PaymentsAPI{client: c}
	c.ProviderReturn = &ProviderReturnAPI{client: c}
	return c
}

type apiRequest struct {
	method string
	path   string
	body   any
	// resource names the decoded payload in errors.
	resource      string
	authenticated bool
}

func (c *Client) do(ctx context.Context, in apiRequest, out any) error {
	var raw []byte
	if in.body != nil {
		var err error
		raw, err = json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("truelayer: encode %s request: %w", in.resource, err)
		}
	}
	var body io.Reader
	if raw != nil {
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, c.cfg.baseURL+in.path, body)
	if err != nil {
		return fmt.Errorf("truelayer: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.userAgent)
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if in.authenticated {
		if c.cfg.tokens == nil {
			return errors.New("truelayer: no token source configured")
		}
		tok, err := c.cfg.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("truelayer: obtain access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+string(tok))
	}
	if in.method == http.MethodPost {
		req.Header.Set("Idempotency-Key", c.cfg.idempotencyKey())
		if c.cfg.signer != nil {
			if err := c.sign(ctx, req, in.path, raw); err != nil {
				return err
			}
		}
	}

	start := c.cfg.clock()
	resp, err := c.cfg.httpClient.Do(req)
	if err != nil {
		c.cfg.logger.DebugContext(ctx, "truelayer request failed", "method", in.method, "path", in.path, "err", err)
		return fmt.Errorf("truelayer: %s %s: %w", in.method, in.path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.cfg.logger.DebugContext(ctx, "truelayer request",
		"method", in.method,
		"path", in.path,
		"status", resp.StatusCode,
		"duration", c.cfg.clock().Sub(start),
	)

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("truelayer: read %s response: %w", in.resource, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp.StatusCode, resp.Header, payload)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) {
			return decodeErr
		}
		return &DecodeError{Union: in.resource, Err: err}
	}
	return nil
}

func (c *Client) sign(ctx context.Context, req *http.Request, path string, raw []byte) error {
	canonical, err := signature.CanonicalizeJSONBody(raw)
	if err != nil {
		return fmt.Errorf("truelayer: canonicalize body: %w", err)
	}
	sig, err := c.cfg.signer.Sign(ctx, signature.Material{
		Timestamp:     c.cfg.clock().UTC(),
		CanonicalBody: canonical,
		Method:        req.Method,
		Path:          path,
		Headers:       req.Header,
	})
	if err != nil {
		return fmt.Errorf("truelayer: sign request: %w", err)
	}
	req.Header.Set("Tl-Signature", sig)
	return nil
}
