package services

import (
	"testing"

	"backport-keeper/internal/config"
	"backport-keeper/internal/env"
)

func TestReconfigureRejectionKeepsPreviousGeneration(t *testing.T) {
	runner := newFakeRunner()
	s := testServer(t, runner)
	configureServer(t, s, nil)

	before := s.Installer()
	if before == nil {
		t.Fatal("Server must be configured")
	}

	err := s.Reconfigure(map[string]interface{}{"backport_url": "ftp://bad"})
	if err == nil {
		t.Fatal("Invalid attributes must be rejected")
	}
	if s.Installer() != before {
		t.Error("A rejected configuration must leave the previous generation in place")
	}
	if s.Reconciler().Running() {
		t.Error("A rejected configuration must not disturb the loop state")
	}
}

func TestReconfigureStartsAndStopsLoop(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.40.0"))
	s := testServer(t, runner)

	home := env.HomeDir
	env.HomeDir = t.TempDir()
	defer func() { env.HomeDir = home }()

	attrs := config.DefaultAttributes()
	attrs["auto_install"] = true
	attrs["check_interval"] = 3600
	if err := s.Reconfigure(attrs); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}
	if !s.Reconciler().Running() {
		t.Fatal("Loop must start when auto_install is enabled")
	}

	attrs["auto_install"] = false
	if err := s.Reconfigure(attrs); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}
	if s.Reconciler().Running() {
		t.Error("Loop must stop when auto_install is disabled")
	}
}

func TestGetHealthzReportsLoopState(t *testing.T) {
	runner := newFakeRunner()
	s := testServer(t, runner)
	configureServer(t, s, nil)

	health := s.GetHealthz()
	if health.Status != "UP" {
		t.Errorf("Expected status UP, got %q", health.Status)
	}
	if health.Metrics.ReconcilerRunning {
		t.Error("Loop must be idle with auto_install disabled")
	}
}
