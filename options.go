package truelayer

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/truelayer/truelayer-go/signature"
)

type webhookConfig struct {
	signing       webhookSigning
	middleware    []Middleware
	authenticator Authenticator
	logger        *slog.Logger
}

func newWebhookConfig(opts []WebhookOption) webhookConfig {
	cfg := webhookConfig{
		signing: webhookSigning{
			maxClockSkew: defaultWebhookClockSkew,
			clock:        time.Now,
		},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.signing.required && cfg.signing.verifier == nil {
		panic("webhook: signature verifier required when signed requests are enforced")
	}
	return cfg
}

// Middleware wraps webhook delivery. Middleware registered later runs earlier.
type Middleware func(http.HandlerFunc) http.HandlerFunc

func chainMiddleware(h http.HandlerFunc, middleware ...Middleware) http.HandlerFunc {
	for _, m := range middleware {
		h = m(h)
	}
	return h
}

// WebhookOption customizes the [WebhookHandler].
type WebhookOption func(*webhookConfig)

// WithSignatureVerifier checks Tl-Signature on every delivery that carries one.
func WithSignatureVerifier(verifier signature.Verifier) WebhookOption {
	return func(cfg *webhookConfig) {
		cfg.signing.verifier = verifier
	}
}

// WithMaxClockSkew sets the tolerated absolute difference between
// X-Tl-Webhook-Timestamp and the local clock. Defaults to five minutes.
func WithMaxClockSkew(skew time.Duration) WebhookOption {
	if skew <= 0 {
		panic("webhook: max clock skew must be positive")
	}
	return func(cfg *webhookConfig) {
		cfg.signing.maxClockSkew = skew
	}
}

// WithRequireSignedRequests rejects unsigned deliveries. It needs a verifier.
func WithRequireSignedRequests() WebhookOption {
	return func(cfg *webhookConfig) {
		cfg.signing.required = true
	}
}

// WithSignedPath sets the path TrueLayer signed, i.e. the path of the registered
// webhook URI. Use it when the handler sees a rewritten path, for example
// behind [http.StripPrefix] or a reverse proxy.
func WithSignedPath(path string) WebhookOption {
	return func(cfg *webhookConfig) {
		cfg.signing.path = path
	}
}

// WithMiddleware appends custom middleware. Nil entries are skipped.
func WithMiddleware(mw ...Middleware) WebhookOption {
	return func(cfg *webhookConfig) {
		for _, m := range mw {
			if m != nil {
				cfg.middleware = append(cfg.middleware, m)
			}
		}
	}
}

// WithAuthenticator requires a Bearer Authorization header accepted by auth.
func WithAuthenticator(auth Authenticator) WebhookOption {
	return func(cfg *webhookConfig) {
		cfg.authenticator = auth
	}
}

// WithWebhookLogger logs received events, rejected signatures and receiver failures.
func WithWebhookLogger(l *slog.Logger) WebhookOption {
	return func(cfg *webhookConfig) {
		if l != nil {
			cfg.logger = l
		}
	}
}

func withClock(fn func() time.Time) WebhookOption {
	return func(cfg *webhookConfig) {
		cfg.signing.clock = fn
	}
}
