package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "janus-console.yaml")
	content := []byte("remote:\n  url: http://10.99.92.39:8865/janus/invoke/v1\n  token: tok\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Remote.URL != "http://10.99.92.39:8865/janus/invoke/v1" {
		t.Errorf("url = %q", cfg.Remote.URL)
	}
	if cfg.Remote.Token != "tok" {
		t.Errorf("token = %q", cfg.Remote.Token)
	}
}

func TestLoadConfigMissingExplicitPath(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}
