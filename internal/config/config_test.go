package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "DEV" {
		t.Fatalf("unexpected environment: %q", cfg.Environment)
	}
	if cfg.Export.ChunkSize != 100 {
		t.Fatalf("unexpected chunk size: %d", cfg.Export.ChunkSize)
	}
	if cfg.Registry.ConcurrentRequests != 10 {
		t.Fatalf("unexpected concurrency limit: %d", cfg.Registry.ConcurrentRequests)
	}
	if cfg.Jobs.RetentionAge != 7*24*time.Hour {
		t.Fatalf("unexpected retention age: %s", cfg.Jobs.RetentionAge)
	}
	if !cfg.Export.EnableRequestReasonCheck {
		t.Fatal("reason check should default to enabled")
	}
	if cfg.Server.DebugEndpoints {
		t.Fatal("debug endpoints should default to disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VL_ENVIRONMENT", "prod")
	t.Setenv("VL_CHUNK_SIZE", "200")
	t.Setenv("VL_ENABLE_API_SOURCING", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "PROD" {
		t.Fatalf("environment not normalized: %q", cfg.Environment)
	}
	if cfg.Export.ChunkSize != 200 {
		t.Fatalf("chunk size override ignored: %d", cfg.Export.ChunkSize)
	}
	if cfg.Registry.EnableAPISourcing {
		t.Fatal("api sourcing override ignored")
	}
}

func TestLoadRejectsInvalidChunkSize(t *testing.T) {
	t.Setenv("VL_CHUNK_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
}
