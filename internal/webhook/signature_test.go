package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"testing"
	"time"
)

func signTestPayload(secret string, body []byte) (timestamp, signature string) {
	timestamp = strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return timestamp, "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	v := NewSignatureVerifier("secret", 300*time.Second)
	body := []byte(`{"type":"file.created"}`)
	ts, sig := signTestPayload("secret", body)
	if err := v.Verify(ts, sig, body); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewSignatureVerifier("secret", 300*time.Second)
	body := []byte(`{}`)
	ts, sig := signTestPayload("other-secret", body)
	if err := v.Verify(ts, sig, body); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	v := NewSignatureVerifier("secret", 300*time.Second)
	v.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	body := []byte(`{}`)
	ts, sig := signTestPayload("secret", body)
	if err := v.Verify(ts, sig, body); !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}
}

func TestVerifyRejectsFutureTimestamp(t *testing.T) {
	v := NewSignatureVerifier("secret", 300*time.Second)
	v.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
	body := []byte(`{}`)
	ts, sig := signTestPayload("secret", body)
	if err := v.Verify(ts, sig, body); !errors.Is(err, ErrStaleTimestamp) {
		t.Fatalf("expected ErrStaleTimestamp, got %v", err)
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v := NewSignatureVerifier("secret", 300*time.Second)
	if err := v.Verify("", "", []byte(`{}`)); !errors.Is(err, ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestVerifyRejectsNonNumericTimestamp(t *testing.T) {
	v := NewSignatureVerifier("secret", 300*time.Second)
	if err := v.Verify("yesterday", "v0=abc", []byte(`{}`)); !errors.Is(err, ErrBadTimestamp) {
		t.Fatalf("expected ErrBadTimestamp, got %v", err)
	}
}
