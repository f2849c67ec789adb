package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BANKING_BASE_DIR", dir)
	t.Setenv("BANKING_API_KEY", "")
	t.Setenv("BANKING_RATE_LIMIT", "")
	t.Setenv("BANKING_MAX_WORKERS", "")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.RateLimitPerMin != 100 {
		t.Errorf("RateLimitPerMin = %d, want 100", s.RateLimitPerMin)
	}
	if s.AdminDBPath != filepath.Join(dir, "admin.db") {
		t.Errorf("AdminDBPath = %s", s.AdminDBPath)
	}
	if _, err := os.Stat(s.LogsDir); err != nil {
		t.Errorf("logs dir not created: %v", err)
	}
}

func TestLoadRejectsNegativeRateLimit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BANKING_BASE_DIR", dir)
	t.Setenv("BANKING_RATE_LIMIT", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative rate limit")
	}
}

func TestLoadRejectsBadVectorBackend(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BANKING_BASE_DIR", dir)
	t.Setenv("BANKING_VECTOR_BACKEND", "pinecone")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown vector backend")
	}
}
