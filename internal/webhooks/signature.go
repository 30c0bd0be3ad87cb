package webhooks

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// signaturePrefix is the scheme tag the processor puts in front of its hex digest.
const signaturePrefix = "v0="

// TimestampField is the key the transport timestamp occupies in the signed payload.
const TimestampField = "timestamp"

var (
	errMissingSignature = errors.New("webhooks: signature header is empty")
	errMissingTimestamp = errors.New("webhooks: timestamp header is empty")
	errNilBody          = errors.New("webhooks: notification body is nil")
)

// Canonicalize serializes body as compact JSON with top-level keys sorted, so
// logically equal bodies sign identically whatever order they arrived in.
// Nested objects are sorted by encoding/json.
func Canonicalize(body map[string]any) ([]byte, error) {
	if body == nil {
		return nil, errNilBody
	}
	keys := make([]string, 0, len(body))
	for k := range body {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := compactJSON(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := compactJSON(body[k])
		if err != nil {
			return nil, fmt.Errorf("webhooks: encode %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func compactJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SigningPayload is the canonical form of body with the transport timestamp
// folded in. The header timestamp always wins over a body field of the same name.
func SigningPayload(body map[string]any, timestamp string) ([]byte, error) {
	if body == nil {
		return nil, errNilBody
	}
	merged := make(map[string]any, len(body)+1)
	for k, v := range body {
		merged[k] = v
	}
	merged[TimestampField] = timestamp
	return Canonicalize(merged)
}

// Sign returns the lowercase hex HMAC-SHA256 of the signing payload.
func Sign(secret string, body map[string]any, timestamp string) (string, error) {
	payload, err := SigningPayload(body, timestamp)
	if err != nil {
		return "", err
	}
	return SignHMAC(secret, payload), nil
}

// Verify recomputes the signature and compares it in constant time. A false
// result with a nil error means the signature simply does not match; an error
// means the input could not be checked at all.
func Verify(secret string, body map[string]any, timestamp, signature string) (bool, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return false, errMissingSignature
	}
	if strings.TrimSpace(timestamp) == "" {
		return false, errMissingTimestamp
	}
	payload, err := SigningPayload(body, timestamp)
	if err != nil {
		return false, err
	}
	return VerifyHMAC(secret, payload, strings.TrimPrefix(signature, signaturePrefix)), nil
}

// VerifyHMAC checks an HMAC-SHA256 signature over the raw body using the shared secret.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, b)
}

// SignHMAC returns lowercase hex of HMAC-SHA256 for use in headers
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("%x", mac.Sum(nil))
}

// SignatureVerifier checks notifications against a shared secret and, when
// Tolerance is positive, rejects timestamps outside now±Tolerance.
type SignatureVerifier struct {
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

func (v SignatureVerifier) Verify(n Notification) (bool, error) {
	ok, err := Verify(v.Secret, n.Body, n.Timestamp, n.Signature)
	if err != nil || !ok {
		return ok, err
	}
	if v.Tolerance <= 0 {
		return true, nil
	}
	return v.withinWindow(n.Timestamp), nil
}

func (v SignatureVerifier) withinWindow(timestamp string) bool {
	secs, err := strconv.ParseInt(strings.TrimSpace(timestamp), 10, 64)
	if err != nil {
		return false
	}
	now := time.Now()
	if v.Now != nil {
		now = v.Now()
	}
	delta := now.Sub(time.Unix(secs, 0))
	if delta < 0 {
		delta = -delta
	}
	return delta <= v.Tolerance
}
