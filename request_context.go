package truelayer

import (
	"context"
	"net/http"
	"strings"
)

// WebhookRequestContext carries the delivery metadata of a webhook request.
type WebhookRequestContext struct {
	// Detached JWS or HMAC signature of the body
	//
	// Example: eyJhbGciOiJFUzUxMiIs...
	Signature string
	// Formatted as an RFC 3339 string.
	//
	// Example: 2026-01-15T10:30:00Z
	Timestamp string
	// Set once the body has been decoded.
	//
	// Example: b8d4dda0-ff2c-4d77-a6da-4615e4bad941
	EventID   string
	UserAgent string
	// Correlates the delivery with backend logs
	//
	// Example: 6c7a5d4b0f3e2a1b
	TraceID       string
	Authorization string
	// Set when a configured verifier accepted the signature.
	SignatureVerified bool
}

func webhookRequestContextFromRequest(r *http.Request) *WebhookRequestContext {
	return &WebhookRequestContext{
		Signature:     strings.TrimSpace(r.Header.Get(headerSignature)),
		Timestamp:     strings.TrimSpace(r.Header.Get(headerWebhookTimestamp)),
		UserAgent:     strings.TrimSpace(r.Header.Get("User-Agent")),
		TraceID:       strings.TrimSpace(r.Header.Get("X-Tl-Trace-Id")),
		Authorization: strings.TrimSpace(r.Header.Get("Authorization")),
	}
}

type webhookRequestContextKey struct{}

func contextWithWebhookRequestContext(ctx context.Context, requestCtx *WebhookRequestContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if requestCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, webhookRequestContextKey{}, requestCtx)
}

// WebhookRequestContextFromContext extracts the delivery metadata stored by [WebhookHandler].
func WebhookRequestContextFromContext(ctx context.Context) *WebhookRequestContext {
	if ctx == nil {
		return nil
	}
	if requestCtx, ok := ctx.Value(webhookRequestContextKey{}).(*WebhookRequestContext); ok {
		return requestCtx
	}
	return nil
}
