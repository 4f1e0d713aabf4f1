package truelayer

import (
	"bytes"
	"context"
	"log/slog"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/truelayer/truelayer-go/signature"
)

func signedWebhookBody(t *testing.T) []byte {
	t.Helper()
	body, err := MarshalWebhookEvent(PaymentExecutedEvent{
		WebhookEnvelope: WebhookEnvelope{EventID: "evt_1", EventVersion: 1, PaymentID: "pay_1"},
		ExecutedAt:      fixtureTime,
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return body
}

func signFixture(t *testing.T, signer signature.Signer, req *http.Request, ts time.Time, body []byte) string {
	t.Helper()
	canonical, err := signature.CanonicalizeJSONBody(body)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	sig, err := signer.Sign(context.Background(), signature.Material{
		Timestamp:     ts,
		CanonicalBody: canonical,
		Method:        req.Method,
		Path:          req.URL.Path,
		Headers:       req.Header,
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func TestSignatureMiddlewareHMAC(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ts := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	clock := withClock(func() time.Time { return ts.Add(30 * time.Second) })

	cases := map[string]struct {
		opts       []WebhookOption
		prepare    func(t *testing.T, req *http.Request, body []byte)
		wantStatus int
	}{
		"valid signature": {
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				req.Header.Set("Tl-Signature", signFixture(t, signature.HMACSigner{Key: key}, req, ts, body))
				req.Header.Set("X-Tl-Webhook-Timestamp", ts.Format(time.RFC3339Nano))
			},
			wantStatus: http.StatusOK,
		},
		"invalid signature": {
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				req.Header.Set("Tl-Signature", "bogus")
				req.Header.Set("X-Tl-Webhook-Timestamp", ts.Format(time.RFC3339Nano))
			},
			wantStatus: http.StatusUnauthorized,
		},
		"signed with another key": {
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				req.Header.Set("Tl-Signature", signFixture(t, signature.HMACSigner{Key: []byte("other")}, req, ts, body))
				req.Header.Set("X-Tl-Webhook-Timestamp", ts.Format(time.RFC3339Nano))
			},
			wantStatus: http.StatusUnauthorized,
		},
		"stale timestamp": {
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				stale := ts.Add(-10 * time.Minute)
				req.Header.Set("Tl-Signature", signFixture(t, signature.HMACSigner{Key: key}, req, stale, body))
				req.Header.Set("X-Tl-Webhook-Timestamp", stale.Format(time.RFC3339))
			},
			wantStatus: http.StatusUnauthorized,
		},
		"skew within custom tolerance": {
			opts: []WebhookOption{WithMaxClockSkew(15 * time.Minute)},
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				stale := ts.Add(-10 * time.Minute)
				req.Header.Set("Tl-Signature", signFixture(t, signature.HMACSigner{Key: key}, req, stale, body))
				req.Header.Set("X-Tl-Webhook-Timestamp", stale.Format(time.RFC3339))
			},
			wantStatus: http.StatusOK,
		},
		"malformed timestamp": {
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				req.Header.Set("Tl-Signature", "sig")
				req.Header.Set("X-Tl-Webhook-Timestamp", "yesterday")
			},
			wantStatus: http.StatusBadRequest,
		},
		"only signature header": {
			prepare: func(t *testing.T, req *http.Request, body []byte) {
				req.Header.Set("Tl-Signature", "sig")
			},
			wantStatus: http.StatusBadRequest,
		},
		"unsigned allowed by default": {
			prepare:    func(*testing.T, *http.Request, []byte) {},
			wantStatus: http.StatusOK,
		},
		"unsigned rejected when required": {
			opts:       []WebhookOption{WithRequireSignedRequests()},
			prepare:    func(*testing.T, *http.Request, []byte) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			receiver := &recordingReceiver{}
			opts := append([]WebhookOption{WithSignatureVerifier(signature.HMACVerifier{Key: key}), clock}, tc.opts...)
			handler := NewWebhookHandler(receiver, opts...)

			body := signedWebhookBody(t)
			req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			tc.prepare(t, req, body)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d got %d body=%s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			if delivered := len(receiver.events) == 1; delivered != (tc.wantStatus == http.StatusOK) {
				t.Fatalf("unexpected delivery state: delivered=%v status=%d", delivered, rec.Code)
			}
		})
	}
}

func TestSignatureMiddlewareES512(t *testing.T) {
	t.Parallel()

	key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	ts := time.Now().UTC()
	handler := NewWebhookHandler(&recordingReceiver{},
		WithSignatureVerifier(signature.ES512Verifier{PublicKey: &key.PublicKey, KeyID: "kid-1"}),
		WithRequireSignedRequests(),
	)

	body := signedWebhookBody(t)
	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
		req.Header.Set("X-Tl-Webhook-Timestamp", ts.Format(time.RFC3339))
		return req
	}

	req := newRequest()
	req.Header.Set("Tl-Signature", signFixture(t, signature.ES512Signer{KeyID: "kid-1", PrivateKey: key, Headers: []string{"X-Tl-Webhook-Timestamp"}}, req, ts, body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
	}

	req = newRequest()
	sig := signFixture(t, signature.ES512Signer{KeyID: "kid-1", PrivateKey: key, Headers: []string{"X-Tl-Webhook-Timestamp"}}, req, ts, body)
	req.Header.Set("X-Tl-Webhook-Timestamp", ts.Add(time.Second).Format(time.RFC3339))
	req.Header.Set("Tl-Signature", sig)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a tampered signed header got %d", rec.Code)
	}
}

func TestSignatureMiddlewareSignedPath(t *testing.T) {
	t.Parallel()

	key, err := ecdsa.GenerateKey(elliptic.P521(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	ts := time.Now().UTC()
	body := signedWebhookBody(t)

	cases := map[string]struct {
		opts       []WebhookOption
		wantStatus int
	}{
		"rewritten path fails":    {wantStatus: http.StatusUnauthorized},
		"registered path matches": {opts: []WebhookOption{WithSignedPath("/hooks/truelayer")}, wantStatus: http.StatusOK},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			opts := append([]WebhookOption{
				WithSignatureVerifier(signature.ES512Verifier{PublicKey: &key.PublicKey}),
				WithRequireSignedRequests(),
			}, tc.opts...)
			handler := http.StripPrefix("/hooks", NewWebhookHandler(&recordingReceiver{}, opts...))

			req := httptest.NewRequest(http.MethodPost, "/hooks/truelayer", bytes.NewReader(body))
			req.Header.Set("X-Tl-Webhook-Timestamp", ts.Format(time.RFC3339))
			req.Header.Set("Tl-Signature", signFixture(t, signature.ES512Signer{KeyID: "kid-1", PrivateKey: key}, req, ts, body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d got %d body=%s", tc.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSignatureMiddlewareMarksVerifiedDeliveries(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	ts := time.Now().UTC()
	body := signedWebhookBody(t)

	cases := map[string]struct {
		sign bool
		want bool
	}{
		"signed":   {sign: true, want: true},
		"unsigned": {sign: false, want: false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			receiver := &recordingReceiver{}
			handler := NewWebhookHandler(receiver, WithSignatureVerifier(signature.HMACVerifier{Key: key}))
			req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(body))
			if tc.sign {
				req.Header.Set("Tl-Signature", signFixture(t, signature.HMACSigner{Key: key}, req, ts, body))
				req.Header.Set("X-Tl-Webhook-Timestamp", ts.Format(time.RFC3339Nano))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200 got %d body=%s", rec.Code, rec.Body.String())
			}
			requestCtx := WebhookRequestContextFromContext(receiver.ctx)
			if requestCtx == nil || requestCtx.SignatureVerified != tc.want {
				t.Fatalf("expected SignatureVerified=%v got %#v", tc.want, requestCtx)
			}
		})
	}
}

func TestSignatureMiddlewareLogsRejections(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	handler := NewWebhookHandler(&recordingReceiver{},
		WithSignatureVerifier(signature.HMACVerifier{Key: []byte("secret")}),
		WithWebhookLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader(signedWebhookBody(t)))
	req.Header.Set("Tl-Signature", "bogus")
	req.Header.Set("X-Tl-Webhook-Timestamp", time.Now().UTC().Format(time.RFC3339))
	req.Header.Set("X-Tl-Trace-Id", "trace-7")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	out := logs.String()
	for _, want := range []string{"truelayer webhook signature rejected", "status=401", "trace_id=trace-7", "signature verification failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in logs got %s", want, out)
		}
	}
}
