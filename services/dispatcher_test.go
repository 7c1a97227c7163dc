package services

import (
	"context"
	"reflect"
	"testing"

	"backport-keeper/internal/config"
	"backport-keeper/internal/env"
)

func testServer(t *testing.T, runner *fakeRunner) *Server {
	t.Helper()
	s := NewServerWithRunner(&config.AppConfig{}, runner)
	t.Cleanup(s.Shutdown)
	return s
}

// configureServer applies default attributes with the work directory
// rooted in the test's temp dir, so the published configuration never
// needs touching afterwards.
func configureServer(t *testing.T, s *Server, extra map[string]interface{}) {
	t.Helper()
	home := env.HomeDir
	env.HomeDir = t.TempDir()
	defer func() { env.HomeDir = home }()

	attrs := config.DefaultAttributes()
	attrs["auto_install"] = false
	for k, v := range extra {
		attrs[k] = v
	}
	if err := s.Reconfigure(attrs); err != nil {
		t.Fatalf("Reconfigure failed: %v", err)
	}
}

func TestDispatcherUnknownCommand(t *testing.T) {
	runner := newFakeRunner()
	s := testServer(t, runner)
	configureServer(t, s, nil)

	d := NewDispatcher(s)
	result := d.DoCommand(context.Background(), map[string]interface{}{"command": "bogus"})

	if result["error"] != "Unknown command: bogus" {
		t.Errorf("Unexpected error field: %v", result["error"])
	}
	names, ok := result["available_commands"].([]string)
	if !ok {
		t.Fatalf("available_commands has unexpected type %T", result["available_commands"])
	}
	want := []string{
		"check_status", "install_backport", "get_nm_version",
		"get_config", "list_backports", "validate_archive",
		"health_check", "cleanup_files",
	}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected command names %v, got %v", want, names)
	}
}

func TestDispatcherNotConfigured(t *testing.T) {
	runner := newFakeRunner()
	s := testServer(t, runner)

	d := NewDispatcher(s)
	result := d.DoCommand(context.Background(), map[string]interface{}{"command": "check_status"})

	if result["status"] != "not_configured" {
		t.Errorf("Expected not_configured result, got %v", result)
	}
}

func TestDispatcherCheckStatus(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8"))
	s := testServer(t, runner)
	configureServer(t, s, nil)

	d := NewDispatcher(s)
	result := d.DoCommand(context.Background(), map[string]interface{}{"command": "check_status"})

	if result["is_backported"] != true {
		t.Errorf("Expected is_backported=true, got %v", result)
	}
	if result["status"] != "installed" {
		t.Errorf("Expected status installed, got %v", result["status"])
	}
}

func TestDispatcherGetConfigEchoesDerivedFields(t *testing.T) {
	runner := newFakeRunner()
	s := testServer(t, runner)
	configureServer(t, s, nil)

	d := NewDispatcher(s)
	result := d.DoCommand(context.Background(), map[string]interface{}{"command": "get_config"})

	if result["archive_name"] != "jammy-nm-backports.tar" {
		t.Errorf("Expected derived archive name, got %v", result["archive_name"])
	}
	if result["target_version"] != config.DefaultTargetVersion {
		t.Errorf("Unexpected target version: %v", result["target_version"])
	}
}

func TestDispatcherInstallForceOverride(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8"))
	s := testServer(t, runner)
	configureServer(t, s, nil)

	d := NewDispatcher(s)

	// Already converged: without force the install is skipped.
	result := d.DoCommand(context.Background(), map[string]interface{}{"command": "install_backport"})
	if result["action"] != "skipped" {
		t.Errorf("Expected skipped action, got %v", result["action"])
	}

	// The request-level force flag overrides the configured one.
	d.DoCommand(context.Background(), map[string]interface{}{"command": "install_backport", "force": true})
	if !runner.sawCommand("curl") {
		t.Error("Forced install via dispatcher must reach the download step")
	}
}

func TestDispatcherListBackports(t *testing.T) {
	runner := newFakeRunner()
	s := testServer(t, runner)
	configureServer(t, s, nil)

	d := NewDispatcher(s)
	result := d.DoCommand(context.Background(), map[string]interface{}{"command": "list_backports"})

	entries, ok := result["available_backports"].([]interface{})
	if !ok || len(entries) == 0 {
		t.Fatalf("Expected catalog entries, got %v", result)
	}
}
