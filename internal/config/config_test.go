package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET_KEY", "test-secret")
	t.Setenv("VERIFY_SIGNATURES", "false")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Port)
	}
	if cfg.KafkaTopic != "frameio-webhooks" {
		t.Fatalf("unexpected topic: %s", cfg.KafkaTopic)
	}
	if cfg.SignatureTolerance != 300*time.Second {
		t.Fatalf("unexpected tolerance: %s", cfg.SignatureTolerance)
	}
	if cfg.IsProduction() {
		t.Fatal("default env should not be production")
	}
}

func TestFromEnvRequiresSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET_KEY", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error without SESSION_SECRET_KEY")
	}
}

func TestFromEnvRequiresWebhookSecretWhenVerifying(t *testing.T) {
	t.Setenv("SESSION_SECRET_KEY", "test-secret")
	t.Setenv("VERIFY_SIGNATURES", "true")
	t.Setenv("FRAMEIO_WEBHOOK_SECRET", "")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected error without FRAMEIO_WEBHOOK_SECRET")
	}
}

func TestPortValidation(t *testing.T) {
	t.Setenv("BAD_PORT", "not-a-port")
	if _, err := Port("BAD_PORT", "8080"); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestBool(t *testing.T) {
	t.Setenv("FLAG", "false")
	if Bool("FLAG", true) {
		t.Fatal("expected false")
	}
	t.Setenv("FLAG", "")
	if !Bool("FLAG", true) {
		t.Fatal("expected fallback true")
	}
}
