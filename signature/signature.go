package signature

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	canonicaljson "github.com/gibson042/canonicaljson-go"
)

// AlgorithmES512 is the only JWS algorithm accepted for request signatures.
const AlgorithmES512 = "ES512"

const (
	es512KeySize = 66
	tlVersion    = "2"
)

// Material captures the inputs needed to sign or validate a request.
type Material struct {
	Signature     string
	Timestamp     time.Time
	CanonicalBody []byte
	Method        string
	Path          string
	Headers       http.Header
}

// Signer produces the Tl-Signature value for an outgoing request.
type Signer interface {
	Sign(ctx context.Context, material Material) (string, error)
}

// SignerFunc lifts bare functions into [Signer].
type SignerFunc func(ctx context.Context, material Material) (string, error)

// Sign delegates to the wrapped function.
func (f SignerFunc) Sign(ctx context.Context, material Material) (string, error) {
	return f(ctx, material)
}

// Verifier validates the authenticity of incoming requests.
type Verifier interface {
	Verify(ctx context.Context, material Material) error
}

// VerifierFunc lifts bare functions into [Verifier].
type VerifierFunc func(ctx context.Context, material Material) error

// Verify delegates to the wrapped function.
func (f VerifierFunc) Verify(ctx context.Context, material Material) error {
	return f(ctx, material)
}

// HMACSigner signs `RFC3339(timestamp) + "." + canonicalJSON` with HMAC-SHA256 and
// encodes the result as unpadded base64url.
type HMACSigner struct {
	Key []byte
}

// Sign implements [Signer].
func (s HMACSigner) Sign(_ context.Context, material Material) (string, error) {
	if len(s.Key) == 0 {
		return "", errors.New("signature: HMACSigner requires a non-empty key")
	}
	return base64.RawURLEncoding.EncodeToString(hmacSum(s.Key, material)), nil
}

// HMACVerifier validates signatures produced by [HMACSigner].
type HMACVerifier struct {
	Key []byte
}

// Verify implements [Verifier] by recomputing the expected HMAC signature.
func (v HMACVerifier) Verify(_ context.Context, material Material) error {
	if len(v.Key) == 0 {
		return errors.New("signature: HMACVerifier requires a non-empty key")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(material.Signature)
	if err != nil {
		return fmt.Errorf("signature: decode signature: %w", err)
	}
	if !hmac.Equal(decoded, hmacSum(v.Key, material)) {
		return errors.New("signature: invalid signature")
	}
	return nil
}

func hmacSum(key []byte, material Material) []byte {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write(BuildSigningPayload(material.Timestamp, material.CanonicalBody))
	return mac.Sum(nil)
}

type jwsHeader struct {
	Alg       string `json:"alg"`
	Kid       string `json:"kid"`
	TLVersion string `json:"tl_version"`
	TLHeaders string `json:"tl_headers"`
}

// ES512Signer produces detached JWS signatures (`header..signature`) over the method,
// path, selected headers and canonical body of a request.
type ES512Signer struct {
	KeyID      string
	PrivateKey *ecdsa.PrivateKey
	// Headers lists the request headers covered by the signature, in order.
	// Headers absent from the request are skipped. Defaults to Idempotency-Key.
	Headers []string
}

// Sign implements [Signer].
func (s ES512Signer) Sign(_ context.Context, material Material) (string, error) {
	if s.PrivateKey == nil {
		return "", errors.New("signature: ES512Signer requires a private key")
	}
	if s.KeyID == "" {
		return "", errors.New("signature: ES512Signer requires a key id")
	}
	names := s.Headers
	if names == nil {
		names = []string{"Idempotency-Key"}
	}
	var signed []HeaderField
	for _, name := range names {
		value := material.Headers.Get(name)
		if value == "" {
			continue
		}
		signed = append(signed, HeaderField{Name: name, Value: value})
	}
	header := jwsHeader{
		Alg:       AlgorithmES512,
		Kid:       s.KeyID,
		TLVersion: tlVersion,
		TLHeaders: joinHeaderNames(signed),
	}
	rawHeader, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("signature: encode header: %w", err)
	}
	encodedHeader := base64.RawURLEncoding.EncodeToString(rawHeader)
	payload := BuildRequestSigningPayload(material.Method, material.Path, signed, material.CanonicalBody)
	digest := sha512.Sum512(signingInput(encodedHeader, payload))
	r, sv, err := ecdsa.Sign(rand.Reader, s.PrivateKey, digest[:])
	if err != nil {
		return "", fmt.Errorf("signature: sign: %w", err)
	}
	sig := make([]byte, 2*es512KeySize)
	r.FillBytes(sig[:es512KeySize])
	sv.FillBytes(sig[es512KeySize:])
	return encodedHeader + ".." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// ES512Verifier validates detached JWS signatures produced by [ES512Signer].
type ES512Verifier struct {
	PublicKey *ecdsa.PublicKey
	// KeyID, when set, must match the kid of the signature header.
	KeyID string
}

// Verify implements [Verifier].
func (v ES512Verifier) Verify(_ context.Context, material Material) error {
	if v.PublicKey == nil {
		return errors.New("signature: ES512Verifier requires a public key")
	}
	encodedHeader, encodedSig, ok := strings.Cut(material.Signature, "..")
	if !ok || encodedHeader == "" || encodedSig == "" {
		return errors.New("signature: expected detached JWS")
	}
	rawHeader, err := base64.RawURLEncoding.DecodeString(encodedHeader)
	if err != nil {
		return fmt.Errorf("signature: decode header: %w", err)
	}
	var header jwsHeader
	if err := json.Unmarshal(rawHeader, &header); err != nil {
		return fmt.Errorf("signature: parse header: %w", err)
	}
	if header.Alg != AlgorithmES512 {
		return fmt.Errorf("signature: unsupported alg %q", header.Alg)
	}
	if v.KeyID != "" && header.Kid != v.KeyID {
		return fmt.Errorf("signature: unexpected kid %q", header.Kid)
	}
	var signed []HeaderField
	if header.TLHeaders != "" {
		for _, name := range strings.Split(header.TLHeaders, ",") {
			name = strings.TrimSpace(name)
			signed = append(signed, HeaderField{Name: name, Value: material.Headers.Get(name)})
		}
	}
	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return fmt.Errorf("signature: decode signature: %w", err)
	}
	if len(sig) != 2*es512KeySize {
		return errors.New("signature: invalid signature length")
	}
	payload := BuildRequestSigningPayload(material.Method, material.Path, signed, material.CanonicalBody)
	digest := sha512.Sum512(signingInput(encodedHeader, payload))
	r := new(big.Int).SetBytes(sig[:es512KeySize])
	s := new(big.Int).SetBytes(sig[es512KeySize:])
	if !ecdsa.Verify(v.PublicKey, digest[:], r, s) {
		return errors.New("signature: invalid signature")
	}
	return nil
}

func signingInput(encodedHeader string, payload []byte) []byte {
	return []byte(encodedHeader + "." + base64.RawURLEncoding.EncodeToString(payload))
}

func joinHeaderNames(fields []HeaderField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}

// HeaderField is one header covered by a request signature.
type HeaderField struct {
	Name  string
	Value string
}

// ReadAndBufferBody reads the request body while keeping it accessible for later handlers.
func ReadAndBufferBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	return raw, nil
}

// CanonicalizeJSONBody normalizes arbitrary JSON into canonical form for signing.
// An empty body canonicalizes to nothing.
func CanonicalizeJSONBody(raw []byte) ([]byte, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("signature: multiple JSON documents in body")
	}
	return canonicaljson.Marshal(payload)
}

// ParseTimestamp accepts timestamp header values in RFC3339 or RFC3339Nano format.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("signature: empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}

// AbsDuration returns the absolute value of the supplied duration.
func AbsDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// BuildSigningPayload constructs the string that is HMAC-signed.
func BuildSigningPayload(ts time.Time, canonicalBody []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(ts.UTC().Format(time.RFC3339Nano))
	buf.WriteByte('.')
	buf.Write(canonicalBody)
	return buf.Bytes()
}

// BuildRequestSigningPayload constructs the JWS payload of a request signature:
// the method and path, one "Name: value" line per signed header, then the body.
func BuildRequestSigningPayload(method, path string, headers []HeaderField, canonicalBody []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.ToUpper(method))
	buf.WriteByte(' ')
	buf.WriteString(path)
	buf.WriteByte('\n')
	for _, h := range headers {
		buf.WriteString(h.Name)
		buf.WriteString(": ")
		buf.WriteString(h.Value)
		buf.WriteByte('\n')
	}
	buf.Write(canonicalBody)
	return buf.Bytes()
}
