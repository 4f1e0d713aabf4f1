package truelayer

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/truelayer/truelayer-go/signature"
)

// fakeBackend is an in-process stand-in for the payments API. A payment created on it
// walks authorization_required -> authorizing (provider selection) -> authorizing (wait)
// -> executed, advancing on the calls a real integration would make.
type fakeBackend struct {
	t *testing.T

	mu               sync.Mutex
	payments         map[string]*Payment
	hiddenReads      int
	readsAfterSelect int
	requests         []*http.Request
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	b := &fakeBackend{t: t, payments: make(map[string]*Payment)}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/payments", b.handleCreate)
	mux.HandleFunc("GET /v3/payments/{id}", b.handleGet)
	mux.HandleFunc("POST /v3/payments/{id}/authorization-flow", b.handleStartFlow)
	mux.HandleFunc("POST /v3/payments/{id}/authorization-flow/actions/provider-selection", b.handleProviderSelection)
	mux.HandleFunc("POST /v3/payments-provider-return", b.handleProviderReturn)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Clone(context.Background()))
		b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *fakeBackend) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		writeJSONError(w, NewUnauthorizedError("missing or invalid token"))
		return false
	}
	if r.Method == http.MethodPost && r.Header.Get("Idempotency-Key") == "" {
		writeJSONError(w, NewInvalidRequestError("Idempotency-Key header is required"))
		return false
	}
	return true
}

func (b *fakeBackend) payment(w http.ResponseWriter, r *http.Request) (*Payment, bool) {
	p, ok := b.payments[r.PathValue("id")]
	if !ok {
		writeJSONError(w, NewHTTPError(http.StatusNotFound, "Not Found", "payment not found"))
	}
	return p, ok
}

func (b *fakeBackend) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	var req CreatePaymentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := fmt.Sprintf("pay_%d", len(b.payments)+1)
	b.payments[id] = &Payment{
		ID:            id,
		AmountInMinor: req.AmountInMinor,
		Currency:      req.Currency,
		User:          User{ID: "user_1"},
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		Metadata:      req.Metadata,
		Status:        PaymentStatusAuthorizationRequired{},
	}
	writeJSON(w, http.StatusCreated, CreatePaymentResponse{
		ID:            id,
		ResourceToken: "resource-token",
		User:          CreatePaymentUserResponse{ID: "user_1"},
	})
}

func (b *fakeBackend) handleGet(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hiddenReads > 0 {
		b.hiddenReads--
		writeJSONError(w, NewHTTPError(http.StatusNotFound, "Not Found", "payment not found"))
		return
	}
	p, ok := b.payment(w, r)
	if !ok {
		return
	}
	if _, waiting := p.AuthorizationFlow().Next().(WaitAction); waiting {
		b.readsAfterSelect++
		if b.readsAfterSelect >= 2 {
			p.Status = PaymentStatusExecuted{ExecutedAt: time.Now().UTC().Truncate(time.Second)}
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (b *fakeBackend) handleStartFlow(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	var req StartAuthorizationFlowRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.payment(w, r)
	if !ok {
		return
	}
	flow := AuthorizationFlow{
		Actions: &AuthorizationFlowActions{Next: ProviderSelectionAction{
			Providers: []Provider{{ID: "ob-mock", DisplayName: ptr("Mock UK Payments")}},
		}},
		Configuration: &AuthorizationFlowConfiguration{
			ProviderSelection: req.ProviderSelection,
			Redirect:          req.Redirect,
		},
	}
	p.Status = PaymentStatusAuthorizing{AuthorizationFlow: flow}
	writeJSON(w, http.StatusOK, AuthorizationFlowResponse{AuthorizationFlow: &flow, Status: AuthorizationFlowStatusAuthorizing{}})
}

func (b *fakeBackend) handleProviderSelection(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(w, r) {
		return
	}
	var req SubmitProviderSelectionActionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.payment(w, r)
	if !ok {
		return
	}
	if req.ProviderID != "ob-mock" {
		writeJSON(w, http.StatusOK, AuthorizationFlowResponse{Status: AuthorizationFlowStatusFailed{
			FailureStage:  FailureStageAuthorizing,
			FailureReason: "provider_not_supported",
		}})
		return
	}
	flow := AuthorizationFlow{Actions: &AuthorizationFlowActions{Next: WaitAction{}}}
	p.Status = PaymentStatusAuthorizing{AuthorizationFlow: flow}
	writeJSON(w, http.StatusOK, AuthorizationFlowResponse{AuthorizationFlow: &flow, Status: AuthorizationFlowStatusAuthorizing{}})
}

func (b *fakeBackend) handleProviderReturn(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "" {
		writeJSONError(w, NewInvalidRequestError("provider return must not be authenticated"))
		return
	}
	var req SubmitProviderReturnParametersRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeJSONError(w, NewInvalidRequestError(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, SubmitProviderReturnParametersResponse{
		Resource: ProviderReturnPayment{PaymentID: strings.TrimPrefix(req.Query, "?payment_id=")},
	})
}

func (b *fakeBackend) lastRequest() *http.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func (b *fakeBackend) requestCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.requests)
}

func newTestClient(srv *httptest.Server, opts ...ClientOption) *Client {
	return NewClient(append([]ClientOption{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithTokenSource(StaticTokenSource("test-token")),
	}, opts...)...)
}

func TestPaymentLifecycleEndToEnd(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	client := newTestClient(srv)
	ctx := context.Background()

	created, err := client.Payments.Create(ctx, sampleCreatePaymentRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" || string(created.ResourceToken) != "resource-token" {
		t.Fatalf("unexpected create response %#v", created)
	}

	payment, err := client.Payments.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if _, ok := payment.Status.(PaymentStatusAuthorizationRequired); !ok {
		t.Fatalf("expected authorization_required got %#v", payment.Status)
	}
	if payment.AmountInMinor != 10000 || payment.Currency != CurrencyGBP {
		t.Fatalf("unexpected payment %#v", payment)
	}

	started, err := client.Payments.StartAuthorizationFlow(ctx, created.ID, StartAuthorizationFlowRequest{
		ProviderSelection: &ProviderSelectionSupported{},
		Redirect:          &RedirectSupported{ReturnURI: "https://merchant.example/return"},
	})
	if err != nil {
		t.Fatalf("StartAuthorizationFlow() error = %v", err)
	}
	selection, ok := started.Next().(ProviderSelectionAction)
	if !ok || len(selection.Providers) != 1 {
		t.Fatalf("expected provider selection action got %#v", started.Next())
	}

	payment, err = client.Payments.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if _, ok := payment.AuthorizationFlow().Next().(ProviderSelectionAction); !ok {
		t.Fatalf("expected authorizing payment with provider selection got %#v", payment.Status)
	}

	selected, err := client.Payments.SubmitProviderSelection(ctx, created.ID, SubmitProviderSelectionActionRequest{
		ProviderID: selection.Providers[0].ID,
	})
	if err != nil {
		t.Fatalf("SubmitProviderSelection() error = %v", err)
	}
	if _, failed := selected.Failed(); failed {
		t.Fatalf("unexpected failed selection %#v", selected.Status)
	}

	final, err := PollUntilTerminalState(ctx, client, created, PollOptions{
		Interval: 5 * time.Millisecond,
		MaxWait:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("PollUntilTerminalState() error = %v", err)
	}
	if _, ok := final.Status.(PaymentStatusExecuted); !ok {
		t.Fatalf("expected executed payment got %#v", final.Status)
	}
	if err := final.CheckConsistency(); err != nil {
		t.Fatalf("inconsistent final payment: %v", err)
	}
	backend.mu.Lock()
	reads := backend.readsAfterSelect
	backend.mu.Unlock()
	if reads < 2 {
		t.Fatalf("expected the driver to poll through the wait action, reads=%d", reads)
	}
}

func TestPollingToleratesPaymentNotYetVisible(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	client := newTestClient(srv)
	ctx := context.Background()

	created, err := client.Payments.Create(ctx, sampleCreatePaymentRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	backend.mu.Lock()
	backend.hiddenReads = 2
	backend.payments[created.ID].Status = PaymentStatusFailed{
		FailedAt:      time.Now().UTC().Truncate(time.Second),
		FailureStage:  FailureStageAuthorizationRequired,
		FailureReason: "authorization_failed",
	}
	backend.mu.Unlock()

	final, err := PollUntilTerminalState(ctx, client, created, PollOptions{Interval: time.Millisecond, MaxWait: 5 * time.Second})
	if err != nil {
		t.Fatalf("PollUntilTerminalState() error = %v", err)
	}
	if _, ok := final.Status.(PaymentStatusFailed); !ok {
		t.Fatalf("expected failed payment got %#v", final.Status)
	}
	// create + two hidden reads + the visible one
	if got := backend.requestCount(); got != 4 {
		t.Fatalf("expected 4 requests got %d", got)
	}
}

func TestPaymentPollOnceMapsNotFound(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBackend(t)
	client := newTestClient(srv)

	_, err := (&Payment{ID: "pay_missing"}).PollOnce(context.Background(), client)
	var notFound *NotFoundWhilePollingError
	if !errors.As(err, &notFound) || notFound.ID != "pay_missing" {
		t.Fatalf("expected *NotFoundWhilePollingError got %v", err)
	}
	if !errors.Is(err, ErrNotFound) || !IsRetryable(err) {
		t.Fatalf("expected retryable not-found error got %v", err)
	}
}

func TestSubmitProviderSelectionFailedIsNotAnError(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBackend(t)
	client := newTestClient(srv)
	ctx := context.Background()

	created, err := client.Payments.Create(ctx, sampleCreatePaymentRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	resp, err := client.Payments.SubmitProviderSelection(ctx, created.ID, SubmitProviderSelectionActionRequest{ProviderID: "ob-unknown"})
	if err != nil {
		t.Fatalf("expected decoded failed response, got error %v", err)
	}
	failed, ok := resp.Failed()
	if !ok || failed.FailureReason != "provider_not_supported" {
		t.Fatalf("unexpected response %#v", resp)
	}
}

func TestProviderReturnIsUnauthenticated(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	client := newTestClient(srv)

	resp, err := client.ProviderReturn.Submit(context.Background(), SubmitProviderReturnParametersRequest{Query: "?payment_id=pay_9"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if got := resp.Resource.(ProviderReturnPayment).PaymentID; got != "pay_9" {
		t.Fatalf("unexpected payment id %s", got)
	}
	if auth := backend.lastRequest().Header.Get("Authorization"); auth != "" {
		t.Fatalf("expected no Authorization header got %q", auth)
	}
}

func TestCreateValidatesBeforeSending(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	client := newTestClient(srv)

	req := sampleCreatePaymentRequest()
	req.AmountInMinor = 0
	_, err := client.Payments.Create(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "amount_in_minor must be greater than 0") {
		t.Fatalf("expected validation error got %v", err)
	}
	if got := backend.requestCount(); got != 0 {
		t.Fatalf("expected no request to be sent, got %d", got)
	}
}

func TestClientSendsStandardHeaders(t *testing.T) {
	t.Parallel()

	backend, srv := newFakeBackend(t)
	client := newTestClient(srv,
		WithUserAgent("merchant-app/2.0"),
		WithIdempotencyKeyFunc(func() string { return "idem-fixed" }),
	)
	if _, err := client.Payments.Create(context.Background(), sampleCreatePaymentRequest()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	req := backend.lastRequest()
	headers := map[string]string{
		"Authorization":   "Bearer test-token",
		"Idempotency-Key": "idem-fixed",
		"Content-Type":    "application/json",
		"User-Agent":      "merchant-app/2.0",
	}
	for name, want := range headers {
		if got := req.Header.Get(name); got != want {
			t.Fatalf("header %s: want %q got %q", name, want, got)
		}
	}
	if got := req.Header.Get("Tl-Signature"); got != "" {
		t.Fatalf("expected no signature without signer, got %q", got)
	}
}

func TestClientSignsPostRequests(t *testing.T) {
	t.Parallel()

	key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	verifier := signature.ES512Verifier{PublicKey: &key.PublicKey, KeyID: "kid-1"}
	verified := make(chan error, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		canonical, err := signature.CanonicalizeJSONBody(raw)
		if err != nil {
			verified <- err
			return
		}
		verified <- verifier.Verify(r.Context(), signature.Material{
			Signature:     r.Header.Get("Tl-Signature"),
			CanonicalBody: canonical,
			Method:        r.Method,
			Path:          r.URL.Path,
			Headers:       r.Header,
		})
		writeJSON(w, http.StatusCreated, CreatePaymentResponse{ID: "pay_1"})
	}))
	t.Cleanup(srv.Close)

	client := newTestClient(srv, WithSigner(signature.ES512Signer{KeyID: "kid-1", PrivateKey: key}))
	if _, err := client.Payments.Create(context.Background(), sampleCreatePaymentRequest()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := <-verified; err != nil {
		t.Fatalf("signature did not verify: %v", err)
	}
}

func TestClientErrorMapping(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		status int
		header map[string]string
		body   string
		check  func(t *testing.T, err error)
	}{
		"not found problem json": {
			status: http.StatusNotFound,
			body:   `{"type":"https://docs.truelayer.com/docs/error-types#not-found","title":"Not Found","status":404,"trace_id":"trace-1","detail":"payment not found"}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("expected ErrNotFound got %v", err)
				}
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.TraceID != "trace-1" || apiErr.Detail != "payment not found" {
					t.Fatalf("unexpected api error %#v", apiErr)
				}
			},
		},
		"validation errors": {
			status: http.StatusBadRequest,
			body:   `{"title":"Invalid Parameters","status":400,"errors":{"amount_in_minor":["must be positive"]}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Errors["amount_in_minor"][0] != "must be positive" {
					t.Fatalf("unexpected api error %#v", err)
				}
				if errors.Is(err, ErrNotFound) {
					t.Fatalf("400 must not match ErrNotFound")
				}
			},
		},
		"rate limited with retry-after": {
			status: http.StatusTooManyRequests,
			header: map[string]string{"Retry-After": "3"},
			body:   `{"title":"Too Many Requests","status":429}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.RetryAfter() != 3*time.Second {
					t.Fatalf("expected retry-after 3s got %#v", err)
				}
			},
		},
		"plain text server error": {
			status: http.StatusBadGateway,
			header: map[string]string{"X-Tl-Trace-Id": "trace-2"},
			body:   "upstream unavailable",
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Title != "Bad Gateway" {
					t.Fatalf("unexpected api error %#v", err)
				}
				if apiErr.TraceID != "trace-2" || apiErr.Detail != "upstream unavailable" {
					t.Fatalf("unexpected trace/detail %#v", apiErr)
				}
			},
		},
		"malformed success body": {
			status: http.StatusOK,
			body:   `{"id":"pay_1","status":"teleported"}`,
			check: func(t *testing.T, err error) {
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) {
					t.Fatalf("expected *DecodeError got %v", err)
				}
			},
		},
		"invalid json body": {
			status: http.StatusOK,
			body:   `{`,
			check: func(t *testing.T, err error) {
				var decodeErr *DecodeError
				if !errors.As(err, &decodeErr) || decodeErr.Union != "payment" {
					t.Fatalf("expected *DecodeError for payment got %v", err)
				}
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tc.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			t.Cleanup(srv.Close)

			_, err := newTestClient(srv).Payments.GetByID(context.Background(), "pay_1")
			if err == nil {
				t.Fatalf("expected error")
			}
			tc.check(t, err)
		})
	}
}

func TestClientWithoutTokenSource(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBackend(t)
	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	if _, err := client.Payments.GetByID(context.Background(), "pay_1"); err == nil {
		t.Fatalf("expected error without token source")
	}
}

func TestClientTokenSourceErrorIsWrapped(t *testing.T) {
	t.Parallel()

	_, srv := newFakeBackend(t)
	tokenErr := errors.New("vault sealed")
	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()),
		WithTokenSource(TokenSourceFunc(func(context.Context) (Token, error) { return "", tokenErr })))
	_, err := client.Payments.GetByID(context.Background(), "pay_1")
	if !errors.Is(err, tokenErr) {
		t.Fatalf("expected wrapped token error got %v", err)
	}
}

func TestCreatePaymentRequestWireFormat(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(sampleCreatePaymentRequest())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	method := got["payment_method"].(map[string]any)
	if method["type"] != "bank_transfer" {
		t.Fatalf("unexpected payment_method %v", method)
	}
	if method["provider_selection"].(map[string]any)["type"] != "user_selected" {
		t.Fatalf("unexpected provider_selection %v", method["provider_selection"])
	}
	if user := got["user"].(map[string]any); user["id"] != "user_1" || len(user) != 1 {
		t.Fatalf("existing user must carry only its id, got %v", user)
	}
}
