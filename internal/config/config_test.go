package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create temporary config file
	content := `
server:
  port: 9090
  host: "127.0.0.1"

database:
  host: "testdb"
  dbname: "coursetest"

encoder:
  ffmpegPath: "/usr/local/bin/ffmpeg"

mux:
  baseURL: "https://mux.test.local"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Database.DBName != "coursetest" {
		t.Errorf("Expected dbname coursetest, got %s", cfg.Database.DBName)
	}

	if cfg.Encoder.FFmpegPath != "/usr/local/bin/ffmpeg" {
		t.Errorf("Expected custom ffmpeg path, got %s", cfg.Encoder.FFmpegPath)
	}

	if cfg.Mux.BaseURL != "https://mux.test.local" {
		t.Errorf("Expected mux base URL override, got %s", cfg.Mux.BaseURL)
	}

	// Defaults fill the rest
	if cfg.Encoder.FFprobePath != "ffprobe" {
		t.Errorf("Expected default ffprobe path, got %s", cfg.Encoder.FFprobePath)
	}

	if cfg.Proxy.DialTimeout != 15*time.Second {
		t.Errorf("Expected default proxy dial timeout 15s, got %v", cfg.Proxy.DialTimeout)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
