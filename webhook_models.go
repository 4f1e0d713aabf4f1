package truelayer

import "time"

// WebhookEventType enumerates the payment webhook events.
type WebhookEventType string

const (
	WebhookEventTypePaymentAuthorized WebhookEventType = "payment_authorized"
	WebhookEventTypePaymentExecuted   WebhookEventType = "payment_executed"
	WebhookEventTypePaymentSettled    WebhookEventType = "payment_settled"
	WebhookEventTypePaymentFailed     WebhookEventType = "payment_failed"
)

// WebhookEvent is a payment lifecycle notification pushed by the backend.
type WebhookEvent interface {
	Type() WebhookEventType
	Envelope() WebhookEnvelope
	isWebhookEvent()
}

// WebhookEnvelope holds the fields shared by every payment event.
type WebhookEnvelope struct {
	EventID      string            `json:"event_id"`
	EventVersion int               `json:"event_version"`
	PaymentID    string            `json:"payment_id"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Envelope returns the shared event fields.
func (e WebhookEnvelope) Envelope() WebhookEnvelope { return e }

// PaymentAuthorizedEvent is sent once the user has authorized the payment.
type PaymentAuthorizedEvent struct {
	WebhookEnvelope
	AuthorizedAt  time.Time      `json:"authorized_at"`
	PaymentSource *PaymentSource `json:"payment_source,omitempty"`
}

// PaymentExecutedEvent is sent once the provider has executed the payment.
type PaymentExecutedEvent struct {
	WebhookEnvelope
	ExecutedAt     time.Time       `json:"executed_at"`
	SettlementRisk *SettlementRisk `json:"settlement_risk,omitempty"`
}

// PaymentSettledEvent is sent once the funds reached a merchant account.
type PaymentSettledEvent struct {
	WebhookEnvelope
	SettledAt      time.Time       `json:"settled_at"`
	PaymentSource  *PaymentSource  `json:"payment_source,omitempty"`
	SettlementRisk *SettlementRisk `json:"settlement_risk,omitempty"`
}

// PaymentFailedEvent is sent when the payment failed at any stage.
type PaymentFailedEvent struct {
	WebhookEnvelope
	FailedAt      time.Time    `json:"failed_at"`
	FailureStage  FailureStage `json:"failure_stage"`
	FailureReason string       `json:"failure_reason"`
}

func (PaymentAuthorizedEvent) Type() WebhookEventType { return WebhookEventTypePaymentAuthorized }
func (PaymentExecutedEvent) Type() WebhookEventType   { return WebhookEventTypePaymentExecuted }
func (PaymentSettledEvent) Type() WebhookEventType    { return WebhookEventTypePaymentSettled }
func (PaymentFailedEvent) Type() WebhookEventType     { return WebhookEventTypePaymentFailed }

func (PaymentAuthorizedEvent) isWebhookEvent() {}
func (PaymentExecutedEvent) isWebhookEvent()   {}
func (PaymentSettledEvent) isWebhookEvent()    {}
func (PaymentFailedEvent) isWebhookEvent()     {}

var webhookEventCodec = unionCodec[WebhookEvent]{
	name:  "webhook event",
	field: tagType,
	tag:   func(v WebhookEvent) string { return string(v.Type()) },
	registry: variants[WebhookEvent]{
		string(WebhookEventTypePaymentAuthorized): requireKeys(decodeAs[WebhookEvent, PaymentAuthorizedEvent],
			"event_id", "payment_id", "authorized_at"),
		string(WebhookEventTypePaymentExecuted): requireKeys(decodeAs[WebhookEvent, PaymentExecutedEvent],
			"event_id", "payment_id", "executed_at"),
		string(WebhookEventTypePaymentSettled): requireKeys(decodeAs[WebhookEvent, PaymentSettledEvent],
			"event_id", "payment_id", "settled_at"),
		string(WebhookEventTypePaymentFailed): requireKeys(decodeAs[WebhookEvent, PaymentFailedEvent],
			"event_id", "payment_id", "failed_at", "failure_stage", "failure_reason"),
	},
}

// MarshalWebhookEvent encodes an event with its type tag, e.g. to deliver it from a fake
// backend in tests.
func MarshalWebhookEvent(e WebhookEvent) ([]byte, error) {
	return webhookEventCodec.marshal(e)
}

// UnmarshalWebhookEvent decodes a tagged event. Unknown event types fail with *DecodeError.
func UnmarshalWebhookEvent(data []byte) (WebhookEvent, error) {
	return webhookEventCodec.unmarshal(data)
}
