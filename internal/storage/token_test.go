package storage

import (
	"testing"
	"time"
)

func TestOAuthTokenExpired(t *testing.T) {
	now := time.Now()

	if (OAuthToken{}).Expired(now) {
		t.Fatal("token without expiry should not be expired")
	}

	past := now.Add(-time.Minute)
	if !(OAuthToken{ExpiresAt: &past}).Expired(now) {
		t.Fatal("past expiry should report expired")
	}

	future := now.Add(time.Hour)
	if (OAuthToken{ExpiresAt: &future}).Expired(now) {
		t.Fatal("future expiry should not report expired")
	}
}
