package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Dispatch.ImmediateWindow != 2*time.Minute {
		t.Errorf("expected 2m immediate window, got %v", cfg.Dispatch.ImmediateWindow)
	}
	if cfg.Dispatch.ScheduledWindow != 30*time.Minute {
		t.Errorf("expected 30m scheduled window, got %v", cfg.Dispatch.ScheduledWindow)
	}
	if cfg.Dispatch.SweepInterval != 15*time.Second {
		t.Errorf("expected 15s sweep interval, got %v", cfg.Dispatch.SweepInterval)
	}
	if cfg.Dispatch.Storage != "postgres" {
		t.Errorf("expected postgres storage, got %s", cfg.Dispatch.Storage)
	}
	if cfg.AMQP.Enabled {
		t.Error("expected AMQP disabled by default")
	}
	if cfg.AMQP.Exchange != "dispatch.events" {
		t.Errorf("unexpected exchange %s", cfg.AMQP.Exchange)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected Redis enabled by default")
	}
	if cfg.Server.AllowedOrigins != nil {
		t.Errorf("expected no origin restriction, got %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DISPATCH_IMMEDIATE_WINDOW", "90s")
	t.Setenv("DISPATCH_STORAGE", "Memory")
	t.Setenv("REDIS_ENABLED", "false")
	t.Setenv("AMQP_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg := Load()

	if cfg.Dispatch.ImmediateWindow != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Dispatch.ImmediateWindow)
	}
	if cfg.Dispatch.Storage != "memory" {
		t.Errorf("expected memory storage, got %s", cfg.Dispatch.Storage)
	}
	if cfg.Redis.Enabled || !cfg.AMQP.Enabled {
		t.Errorf("unexpected toggles redis=%v amqp=%v", cfg.Redis.Enabled, cfg.AMQP.Enabled)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("expected redis db 3, got %d", cfg.Redis.DB)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.Server.AllowedOrigins, want) {
		t.Errorf("expected %v, got %v", want, cfg.Server.AllowedOrigins)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DISPATCH_SWEEP_INTERVAL", "soon")
	t.Setenv("AMQP_ENABLED", "maybe")

	cfg := Load()

	if cfg.Dispatch.SweepInterval != 15*time.Second {
		t.Errorf("expected default sweep interval, got %v", cfg.Dispatch.SweepInterval)
	}
	if cfg.AMQP.Enabled {
		t.Error("expected default AMQP toggle")
	}
}
