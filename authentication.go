package truelayer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Token is a bearer credential. It prints redacted so it never ends up in logs by accident;
// convert it with string(t) to use the value.
type Token string

// String redacts the token.
func (t Token) String() string {
	if t == "" {
		return ""
	}
	return "[redacted]"
}

// GoString redacts the token for %#v.
func (t Token) GoString() string { return t.String() }

// TokenSource supplies the access token sent with every authenticated API call.
type TokenSource interface {
	Token(ctx context.Context) (Token, error)
}

// TokenSourceFunc lifts bare functions into [TokenSource].
type TokenSourceFunc func(ctx context.Context) (Token, error)

// Token calls the wrapped function.
func (f TokenSourceFunc) Token(ctx context.Context) (Token, error) {
	return f(ctx)
}

// StaticTokenSource always returns the same token.
type StaticTokenSource Token

// Token returns the static token.
func (s StaticTokenSource) Token(context.Context) (Token, error) {
	if s == "" {
		return "", errors.New("truelayer: empty static token")
	}
	return Token(s), nil
}

const tokenExpiryMargin = 30 * time.Second

// ClientCredentials fetches access tokens with the OAuth2 client credentials grant and
// caches them until shortly before they expire. It is safe for concurrent use.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	// Scopes defaults to "payments".
	Scopes []string
	// AuthURL defaults to [SandboxAuthURL].
	AuthURL    string
	HTTPClient *http.Client

	clock func() time.Time

	mu     sync.Mutex
	token  Token
	expiry time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Token returns the cached token, fetching a new one when missing or about to expire.
func (c *ClientCredentials) Token(ctx context.Context) (Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.token != "" && now.Before(c.expiry) {
		return c.token, nil
	}
	tok, expiresIn, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = tok
	c.expiry = now.Add(expiresIn - tokenExpiryMargin)
	return tok, nil
}

func (c *ClientCredentials) fetch(ctx context.Context) (Token, time.Duration, error) {
	if c.ClientID == "" || c.ClientSecret == "" {
		return "", 0, errors.New("truelayer: client_id and client_secret are required")
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = []string{"payments"}
	}
	authURL := c.AuthURL
	if authURL == "" {
		authURL = SandboxAuthURL
	}
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
		"scope":         {strings.Join(scopes, " ")},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(authURL, "/")+"/connect/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("truelayer: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("truelayer: request token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", 0, fmt.Errorf("truelayer: read token response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			return "", 0, NewHTTPError(resp.StatusCode, oe.Error, oe.ErrorDescription,
				WithRetryAfter(parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())))
		}
		return "", 0, decodeAPIError(resp.StatusCode, resp.Header, body)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, &DecodeError{Union: "token response", Err: err}
	}
	if tr.AccessToken == "" {
		return "", 0, &DecodeError{Union: "token response", Field: "access_token", Err: errors.New("empty access token")}
	}
	return Token(tr.AccessToken), time.Duration(tr.ExpiresIn) * time.Second, nil
}

func (c *ClientCredentials) now() time.Time {
	if c.clock != nil {
		return c.clock()
	}
	return time.Now()
}

// Authenticator validates the Authorization header of webhook deliveries before they
// reach the [WebhookReceiver]. Useful when a proxy in front of the handler adds a
// shared bearer secret.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) error
}

// AuthenticatorFunc lifts bare functions into [Authenticator].
type AuthenticatorFunc func(ctx context.Context, apiKey string) error

// Authenticate validates the API key using the wrapped function.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, apiKey string) error {
	return f(ctx, apiKey)
}

func (h *WebhookHandler) authenticationMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.authenticator == nil {
			next(w, r)
			return
		}
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" {
			writeJSONError(w, NewUnauthorizedError("Authorization header is required"))
			return
		}
		schema, apiKey, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(schema, "Bearer") {
			writeJSONError(w, NewUnauthorizedError("Authorization header must be in the format 'Bearer <api_key>'"))
			return
		}
		if apiKey == "" {
			writeJSONError(w, NewUnauthorizedError("API key is required"))
			return
		}
		if err := h.cfg.authenticator.Authenticate(r.Context(), apiKey); err != nil {
			var httpErr *APIError
			if errors.As(err, &httpErr) {
				writeJSONError(w, httpErr)
				return
			}
			writeJSONError(w, NewUnauthorizedError("invalid API key"))
			return
		}
		next(w, r)
	}
}
