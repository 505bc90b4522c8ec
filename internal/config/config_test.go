package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, expected 8000", cfg.Port)
	}
	if cfg.KnownDistance != 0.45 || cfg.KnownWidth != 0.15 {
		t.Errorf("reference = %v/%v, expected 0.45/0.15", cfg.KnownDistance, cfg.KnownWidth)
	}
	if cfg.CalibrationAttempts != 30 {
		t.Errorf("CalibrationAttempts = %d, expected 30", cfg.CalibrationAttempts)
	}
	if cfg.FrameInterval != 100*time.Millisecond {
		t.Errorf("FrameInterval = %v, expected 100ms", cfg.FrameInterval)
	}
	if cfg.FrameSource != SourceOpenCV {
		t.Errorf("FrameSource = %q, expected %q", cfg.FrameSource, SourceOpenCV)
	}
	if cfg.FrameRetries != 5 {
		t.Errorf("FrameRetries = %d, expected 5", cfg.FrameRetries)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("KNOWN_DISTANCE", "40")
	t.Setenv("KNOWN_WIDTH", "15")
	t.Setenv("FOCAL_LENGTH", "540")
	t.Setenv("FRAME_SOURCE", "V4L2")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://example.org,")
	t.Setenv("CALIBRATION_INTERVAL_MS", "0")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, expected 9090", cfg.Port)
	}
	if cfg.KnownDistance != 40 || cfg.KnownWidth != 15 {
		t.Errorf("reference = %v/%v, expected 40/15", cfg.KnownDistance, cfg.KnownWidth)
	}
	if cfg.FocalLength != 540 {
		t.Errorf("FocalLength = %v, expected 540", cfg.FocalLength)
	}
	if cfg.FrameSource != SourceV4L2 {
		t.Errorf("FrameSource = %q, expected %q", cfg.FrameSource, SourceV4L2)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://example.org" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
	if cfg.CalibrationInterval != 0 {
		t.Errorf("CalibrationInterval = %v, expected 0", cfg.CalibrationInterval)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "not-a-port")
	t.Setenv("KNOWN_WIDTH", "wide")

	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, expected default 8000", cfg.Port)
	}
	if cfg.KnownWidth != 0.15 {
		t.Errorf("KnownWidth = %v, expected default 0.15", cfg.KnownWidth)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")
	t.Setenv("DISTANCE_UNIT", "")
	os.Unsetenv("DISTANCE_UNIT")

	envFile := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(envFile, []byte("PORT=7070\nDISTANCE_UNIT=cm\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	cfg, err := LoadFile(envFile)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Port != 7070 {
		t.Errorf("Port = %d, expected 7070 from env file", cfg.Port)
	}
	if cfg.DistanceUnit != "cm" {
		t.Errorf("DistanceUnit = %q, expected cm", cfg.DistanceUnit)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "typo.env"))
	if err == nil {
		t.Fatal("expected an error for a missing env file")
	}
	if cfg != nil {
		t.Errorf("expected no config, got %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero known distance", func(c *Config) { c.KnownDistance = 0 }},
		{"negative known width", func(c *Config) { c.KnownWidth = -0.15 }},
		{"no attempts", func(c *Config) { c.CalibrationAttempts = 0 }},
		{"negative focal length", func(c *Config) { c.FocalLength = -1 }},
		{"bad port", func(c *Config) { c.Port = 70000 }},
		{"bad quality", func(c *Config) { c.JPEGQuality = 0 }},
		{"negative frame retries", func(c *Config) { c.FrameRetries = -1 }},
		{"unknown source", func(c *Config) { c.FrameSource = "gstreamer" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			cfg := Load()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
