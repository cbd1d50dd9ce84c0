package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.DBPath != "turnstile.db" {
		t.Errorf("DBPath = %q, want turnstile.db", cfg.DBPath)
	}
	if cfg.ConfThreshold != 0.25 {
		t.Errorf("ConfThreshold = %v, want 0.25", cfg.ConfThreshold)
	}
	if cfg.MaxUploadMB != 512 {
		t.Errorf("MaxUploadMB = %d, want 512", cfg.MaxUploadMB)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("TURNSTILE_ADDR", ":9000")
	t.Setenv("TURNSTILE_CONF_THRESHOLD", "0.4")
	t.Setenv("TURNSTILE_MAX_UPLOAD_MB", "64")

	cfg := Load()

	if cfg.Addr != ":9000" {
		t.Errorf("Addr = %q, want :9000", cfg.Addr)
	}
	if cfg.ConfThreshold != 0.4 {
		t.Errorf("ConfThreshold = %v, want 0.4", cfg.ConfThreshold)
	}
	if cfg.MaxUploadMB != 64 {
		t.Errorf("MaxUploadMB = %d, want 64", cfg.MaxUploadMB)
	}
}

func TestLoad_MalformedNumbers(t *testing.T) {
	t.Setenv("TURNSTILE_CONF_THRESHOLD", "not-a-number")
	t.Setenv("TURNSTILE_MAX_UPLOAD_MB", "sixty-four")

	cfg := Load()

	if cfg.ConfThreshold != 0.25 {
		t.Errorf("ConfThreshold = %v, want fallback 0.25", cfg.ConfThreshold)
	}
	if cfg.MaxUploadMB != 512 {
		t.Errorf("MaxUploadMB = %d, want fallback 512", cfg.MaxUploadMB)
	}
}
