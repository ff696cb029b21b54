package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load() with no file error = %v", err)
	}

	cfg := m.Get()
	if cfg.Role != "host" {
		t.Errorf("default Role = %q, want host", cfg.Role)
	}
	if !cfg.CaptureMouse || !cfg.CaptureKeyboard {
		t.Error("default capture categories are not both enabled")
	}
	if cfg.ConsumeInput {
		t.Error("default ConsumeInput = true, want false")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	m := NewManagerAt(path)
	cfg := m.Get()
	cfg.Role = "agent"
	cfg.HostAddr = "10.0.0.2:18080"
	cfg.Token = "secret"
	cfg.ConsumeInput = true
	cfg.CaptureKeyboard = false
	m.Set(cfg)
	if err := m.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	m2 := NewManagerAt(path)
	if err := m2.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	got := m2.Get()
	if got.Role != "agent" || got.HostAddr != "10.0.0.2:18080" || got.Token != "secret" {
		t.Errorf("loaded config = %+v", got)
	}
	if !got.ConsumeInput || got.CaptureKeyboard {
		t.Errorf("loaded toggles = consume %v, keyboard %v", got.ConsumeInput, got.CaptureKeyboard)
	}
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))

	cfg := m.Get()
	cfg.Role = "agent"
	cfg.ConsumeInput = true

	// Mutations stay local until passed back through Set.
	if got := m.Get(); got.Role != "host" || got.ConsumeInput {
		t.Errorf("Get() after local mutation = %+v, want untouched defaults", got)
	}

	m.Set(cfg)
	cfg.Role = "host"
	if got := m.Get(); got.Role != "agent" {
		t.Errorf("Get() after Set = role %q, want agent", got.Role)
	}
}

func TestChangeCallback(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "config.json"))

	fired := 0
	m.RegisterChangeCallback(func() { fired++ })

	cfg := m.Get()
	cfg.LogLevel = "debug"
	m.Set(cfg)

	if fired != 1 {
		t.Errorf("change callback fired %d times, want 1", fired)
	}
}
