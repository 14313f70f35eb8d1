package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.HTTPPort)
	}
	if cfg.AssetsDir != "assets" {
		t.Errorf("expected assets dir, got %s", cfg.AssetsDir)
	}
	if cfg.LogTrailCap != 100 {
		t.Errorf("expected trail cap 100, got %d", cfg.LogTrailCap)
	}
	if cfg.KeepaliveInterval != 5*time.Second {
		t.Errorf("expected 5s keepalive, got %v", cfg.KeepaliveInterval)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("expected 1s poll, got %v", cfg.PollInterval)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("POLL_SECONDS", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.HTTPPort)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Errorf("expected 3s poll, got %v", cfg.PollInterval)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofd.yaml")
	data := "node_id: test-node\nhttp_port: 8080\nlog_trail_cap: 50\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.NodeID != "test-node" {
		t.Errorf("expected test-node, got %s", cfg.NodeID)
	}
	if cfg.HTTPPort != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.LogTrailCap != 50 {
		t.Errorf("expected trail cap 50, got %d", cfg.LogTrailCap)
	}
	// Unset keys keep their defaults
	if cfg.AssetsDir != "assets" {
		t.Errorf("expected assets dir, got %s", cfg.AssetsDir)
	}
}

func TestLoad_FileEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofd.yaml")
	if err := os.WriteFile(path, []byte("http_port: 8080\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected env to win over file, got %d", cfg.HTTPPort)
	}
}

func TestLoad_BadFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{HTTPPort: 3000}
	if cfg.Addr() != ":3000" {
		t.Errorf("expected :3000, got %s", cfg.Addr())
	}
}
