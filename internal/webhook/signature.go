package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"
)

var (
	ErrMissingSignature = errors.New("missing signature headers")
	ErrBadTimestamp     = errors.New("request timestamp is not a unix time")
	ErrStaleTimestamp   = errors.New("request timestamp outside tolerance window")
	ErrBadSignature     = errors.New("signature mismatch")
)

// SignatureVerifier checks Frame.io's v0 HMAC scheme: the signature header
// carries "v0=" + hex(HMAC-SHA256(secret, "v0:<timestamp>:<body>")), and the
// timestamp must be recent to block replays.
type SignatureVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

func NewSignatureVerifier(secret string, tolerance time.Duration) *SignatureVerifier {
	return &SignatureVerifier{
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

func (v *SignatureVerifier) Verify(timestamp, signature string, body []byte) error {
	if timestamp == "" || signature == "" {
		return ErrMissingSignature
	}

	requestTime, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrBadTimestamp
	}
	drift := v.now().Unix() - requestTime
	if drift < 0 {
		drift = -drift
	}
	if time.Duration(drift)*time.Second > v.tolerance {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}
