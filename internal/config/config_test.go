package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestApplyEnvOverridesDefaults(t *testing.T) {
	cfg := Defaults()
	err := cfg.applyEnv(envMap(map[string]string{
		"PORT":               "9000",
		"DEFIHUB_SERVER_URL": "http://gw",
		"MERCHANT_API_KEY":   "key",
		"WEBHOOK_SECRET":     "s3cret",
		"WEBHOOK_TOLERANCE":  "5m",
		"LEDGER_CAPACITY":    "42",
		"RATE_RPS":           "2.5",
		"DB_MIGRATE":         "false",
	}))
	if err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Addr() != ":9000" || cfg.TimestampTolerance != 5*time.Minute || cfg.LedgerCapacity != 42 || cfg.RateRPS != 2.5 || cfg.DBMigrate {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SignatureHeader != "X-Defihub-Signature" {
		t.Fatalf("default header lost: %s", cfg.SignatureHeader)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	cfg := Defaults()
	if err := cfg.applyEnv(envMap(map[string]string{"RATE_BURST": "many"})); err == nil {
		t.Fatal("expected error")
	}
	cfg = Defaults()
	if err := cfg.applyEnv(envMap(map[string]string{"LEDGER_TTL": "soon"})); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateListsMissing(t *testing.T) {
	err := Defaults().Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, k := range []string{"DEFIHUB_SERVER_URL", "MERCHANT_API_KEY", "WEBHOOK_SECRET"} {
		if !strings.Contains(err.Error(), k) {
			t.Fatalf("missing %s in %q", k, err)
		}
	}
}

func TestMergeFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "gatewayUrl: http://file-gw\nmerchantApiKey: file-key\nwebhookSecret: file-secret\nledgerTtl: 24h\nrateRps: 10\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		t.Fatalf("mergeFile: %v", err)
	}
	if err := cfg.applyEnv(envMap(map[string]string{"MERCHANT_API_KEY": "env-key"})); err != nil {
		t.Fatal(err)
	}
	if cfg.GatewayURL != "http://file-gw" || cfg.MerchantAPIKey != "env-key" || cfg.LedgerTTL != 24*time.Hour || cfg.RateRPS != 10 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.CurrencyCode != "TON" {
		t.Fatalf("defaults should survive file merge, got %q", cfg.CurrencyCode)
	}
}

func TestPublicHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.WebhookSecret = "s3cret"
	cfg.MerchantAPIKey = "key"
	for k, v := range cfg.Public() {
		if s, ok := v.(string); ok && (s == "s3cret" || s == "key") {
			t.Fatalf("%s leaks a secret", k)
		}
	}
}
