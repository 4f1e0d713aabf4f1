package truelayer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// WebhookReceiver is implemented by business logic that reacts to payment events.
// Returning an error makes the handler answer with a non-2xx status so the backend
// redelivers the event.
type WebhookReceiver interface {
	HandleWebhookEvent(ctx context.Context, event WebhookEvent) error
}

// WebhookReceiverFunc lifts bare functions into [WebhookReceiver].
type WebhookReceiverFunc func(ctx context.Context, event WebhookEvent) error

// HandleWebhookEvent delegates to the wrapped function.
func (f WebhookReceiverFunc) HandleWebhookEvent(ctx context.Context, event WebhookEvent) error {
	return f(ctx, event)
}

// WebhookHandler accepts payment webhook deliveries over net/http.
type WebhookHandler struct {
	receiver WebhookReceiver
	mux      *http.ServeMux
	cfg      webhookConfig
}

// NewWebhookHandler wires webhook deliveries to receiver. Mount it at the path registered
// as the webhook URI; every POST is treated as a delivery.
func NewWebhookHandler(receiver WebhookReceiver, opts ...WebhookOption) *WebhookHandler {
	if receiver == nil {
		panic("webhook: receiver is required")
	}
	h := &WebhookHandler{
		receiver: receiver,
		mux:      http.NewServeMux(),
		cfg:      newWebhookConfig(opts),
	}
	var middleware []Middleware
	if h.cfg.signing.verifier != nil {
		middleware = append(middleware, h.cfg.signing.middleware(h.cfg.logger))
	}
	if h.cfg.authenticator != nil {
		middleware = append(middleware, h.authenticationMiddleware)
	}
	middleware = append(middleware, h.cfg.middleware...)
	h.registerRoutes(middleware...)
	return h
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestCtx := webhookRequestContextFromRequest(r)
	ctx := contextWithWebhookRequestContext(r.Context(), requestCtx)
	h.mux.ServeHTTP(w, r.WithContext(ctx))
}

func (h *WebhookHandler) registerRoutes(middleware ...Middleware) {
	h.mux.HandleFunc("POST /", chainMiddleware(h.handleEvent, middleware...))
}

func (h *WebhookHandler) handleEvent(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxWebhookBytes), &raw); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	event, err := UnmarshalWebhookEvent(raw)
	if err != nil {
		var decodeErr *DecodeError
		if errors.As(err, &decodeErr) && errors.Is(err, errUnknownTag) {
			writeJSONError(w, NewInvalidRequestError("unsupported event type", WithFieldError("type", decodeErr.Tag)))
			return
		}
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	envelope := event.Envelope()
	if requestCtx := WebhookRequestContextFromContext(r.Context()); requestCtx != nil {
		requestCtx.EventID = envelope.EventID
	}
	logger := h.cfg.logger.With("event_type", event.Type(), "event_id", envelope.EventID, "payment_id", envelope.PaymentID)
	logger.DebugContext(r.Context(), "truelayer webhook received")
	if err := h.receiver.HandleWebhookEvent(r.Context(), event); err != nil {
		logger.ErrorContext(r.Context(), "truelayer webhook receiver failed", "err", err)
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
