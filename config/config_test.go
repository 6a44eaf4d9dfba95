package config

import (
	"testing"
	"time"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"jwt": map[string]any{
			"sessionTtl": "720h",
			"tempTtl":    "5m",
		},
		"mail": map[string]any{
			"appBaseUrl": "",
		},
		"auth": map[string]any{
			"bcryptCost": 10,
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "JWT_SESSIONTTL", want: "jwt.sessionTtl"},
		{envKey: "JWT_TEMPTTL", want: "jwt.tempTtl"},
		{envKey: "MAIL_APPBASEURL", want: "mail.appBaseUrl"},
		{envKey: "AUTH_BCRYPTCOST", want: "auth.bcryptCost"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Storage.Driver != StorageMemory {
		t.Fatalf("default storage driver = %q, want %q", cfg.Storage.Driver, StorageMemory)
	}
	if cfg.JWT.SessionTTL != 30*24*time.Hour {
		t.Fatalf("default session TTL = %v, want 720h", cfg.JWT.SessionTTL)
	}
	if cfg.JWT.TempTTL != 5*time.Minute {
		t.Fatalf("default temp TTL = %v, want 5m", cfg.JWT.TempTTL)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Fatalf("default bcrypt cost = %d, want 10", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.VerificationTTL != 24*time.Hour {
		t.Fatalf("default verification TTL = %v, want 24h", cfg.Auth.VerificationTTL)
	}
	if cfg.Auth.ResetTTL != time.Hour {
		t.Fatalf("default reset TTL = %v, want 1h", cfg.Auth.ResetTTL)
	}
	if cfg.TOTP.Skew != 1 {
		t.Fatalf("default TOTP skew = %d, want 1", cfg.TOTP.Skew)
	}
	if cfg.Mail.Driver != MailLog {
		t.Fatalf("default mail driver = %q, want %q", cfg.Mail.Driver, MailLog)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.Storage.Driver = StoragePostgres
	cfg.JWT = &JWTConfig{Secret: "s", SessionTTL: time.Hour}
	cfg.applyDefaults()

	if cfg.Storage.Driver != StoragePostgres {
		t.Fatalf("storage driver overwritten: %q", cfg.Storage.Driver)
	}
	if cfg.JWT.SessionTTL != time.Hour {
		t.Fatalf("session TTL overwritten: %v", cfg.JWT.SessionTTL)
	}
	if cfg.JWT.TempTTL != 5*time.Minute {
		t.Fatalf("temp TTL not defaulted: %v", cfg.JWT.TempTTL)
	}
}
