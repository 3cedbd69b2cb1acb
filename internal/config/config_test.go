package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := config.Load()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.EnableEmptyState {
		t.Error("empty state must be off by default")
	}
	if cfg.DefaultIssuer != "teste" || cfg.DefaultPlan != "consultoria-online-anual" {
		t.Errorf("unexpected default plan %s/%s", cfg.DefaultIssuer, cfg.DefaultPlan)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("expected 2h session ttl, got %s", cfg.SessionTTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENABLE_EMPTY_STATE", "true")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := config.Load()

	if cfg.Port != 9090 || !cfg.EnableEmptyState || cfg.SessionTTL != 30*time.Minute || cfg.RedisDB != 2 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("invalid int should keep the default, got %d", cfg.MaxRetries)
	}
}

func TestValidate_WebhookNeedsSecret(t *testing.T) {
	cfg := config.Load()
	cfg.HandoffWebhookURL = "http://localhost:9000/hooks"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error without webhook secret")
	}

	cfg.HandoffWebhookSecret = "s3cret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n" +
		"CHECKOUT_TEST_A=one\n" +
		"export CHECKOUT_TEST_B=\"two words\"\n" +
		"CHECKOUT_TEST_C=three # trailing\n" +
		"CHECKOUT_TEST_KEEP=from-file\n" +
		"garbage line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHECKOUT_TEST_KEEP", "from-env")
	for _, k := range []string{"CHECKOUT_TEST_A", "CHECKOUT_TEST_B", "CHECKOUT_TEST_C"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"CHECKOUT_TEST_A":    "one",
		"CHECKOUT_TEST_B":    "two words",
		"CHECKOUT_TEST_C":    "three",
		"CHECKOUT_TEST_KEEP": "from-env",
	}
	for k, v := range want {
		if got := os.Getenv(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}
