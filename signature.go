package truelayer

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/truelayer/truelayer-go/signature"
)

const (
	headerSignature        = "Tl-Signature"
	headerWebhookTimestamp = "X-Tl-Webhook-Timestamp"

	defaultWebhookClockSkew = 5 * time.Minute
)

// webhookSigning authenticates deliveries by their Tl-Signature header.
type webhookSigning struct {
	verifier     signature.Verifier
	required     bool
	maxClockSkew time.Duration
	// path replaces r.URL.Path in the signed material when set.
	path  string
	clock func() time.Time
}

// check reports whether r carried a valid signature. Unsigned deliveries pass
// unverified unless signatures are required.
func (s webhookSigning) check(r *http.Request) (bool, *APIError) {
	sig := strings.TrimSpace(r.Header.Get(headerSignature))
	stamp := strings.TrimSpace(r.Header.Get(headerWebhookTimestamp))
	switch {
	case sig == "" && stamp == "":
		if s.required {
			return false, NewUnauthorizedError("Tl-Signature and X-Tl-Webhook-Timestamp headers are required")
		}
		return false, nil
	case sig == "" || stamp == "":
		return false, NewInvalidRequestError("Tl-Signature and X-Tl-Webhook-Timestamp headers must both be provided")
	}

	sentAt, err := signature.ParseTimestamp(stamp)
	if err != nil {
		return false, NewInvalidRequestError("X-Tl-Webhook-Timestamp must be RFC3339")
	}
	if skew := signature.AbsDuration(s.clock().Sub(sentAt)); skew > s.maxClockSkew {
		return false, NewUnauthorizedError(fmt.Sprintf("timestamp skew exceeds %s", s.maxClockSkew))
	}

	raw, err := signature.ReadAndBufferBody(r)
	if err != nil {
		return false, NewInvalidRequestError("unable to read request body")
	}
	body, err := signature.CanonicalizeJSONBody(raw)
	if err != nil {
		return false, NewInvalidRequestError("request body must be valid JSON")
	}
	if err := s.verifier.Verify(r.Context(), signature.Material{
		Signature:     sig,
		Timestamp:     sentAt.UTC(),
		CanonicalBody: body,
		Method:        r.Method,
		Path:          s.signedPath(r),
		Headers:       r.Header.Clone(),
	}); err != nil {
		return false, NewUnauthorizedError("signature verification failed")
	}
	return true, nil
}

func (s webhookSigning) signedPath(r *http.Request) string {
	if s.path != "" {
		return s.path
	}
	return r.URL.Path
}

// middleware answers rejected deliveries with problem JSON and flags verified
// ones on the [WebhookRequestContext].
func (s webhookSigning) middleware(logger *slog.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			verified, rejection := s.check(r)
			requestCtx := WebhookRequestContextFromContext(r.Context())
			if rejection != nil {
				attrs := []any{"status", rejection.Status, "reason", rejection.Detail}
				if requestCtx != nil {
					attrs = append(attrs, "trace_id", requestCtx.TraceID)
				}
				logger.WarnContext(r.Context(), "truelayer webhook signature rejected", attrs...)
				writeJSONError(w, rejection)
				return
			}
			if requestCtx != nil {
				requestCtx.SignatureVerified = verified
			}
			next(w, r)
		}
	}
}
