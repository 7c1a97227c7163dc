package services

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"backport-keeper/internal/config"
	"backport-keeper/internal/logger"
	"backport-keeper/internal/models"
	"backport-keeper/internal/utils"
)

/**
 * Initialize test environment
 * @description
 * - Initializes the logger system with console output
 * - Called automatically when the test package is loaded
 */
func init() {
	logger.InitLogger("console", "error", false)
}

/**
 * Scripted command runner for tests
 * @description
 * - Dispatches on the command name ("sudo" additionally on its first
 *   argument, e.g. "sudo dpkg"); unscripted commands succeed silently
 * - Records every invocation for assertions
 */
type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	handlers map[string]func(dir string, args []string) utils.CommandResult
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		handlers: make(map[string]func(dir string, args []string) utils.CommandResult),
	}
}

func (f *fakeRunner) on(key string, fn func(dir string, args []string) utils.CommandResult) {
	f.handlers[key] = fn
}

func (f *fakeRunner) reply(key string, result utils.CommandResult) {
	f.on(key, func(string, []string) utils.CommandResult { return result })
}

func (f *fakeRunner) Run(ctx context.Context, dir string, name string, args ...string) utils.CommandResult {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()

	key := name
	if name == "sudo" && len(args) > 0 {
		key = "sudo " + args[0]
	}
	if fn, ok := f.handlers[key]; ok {
		result := fn(dir, args)
		result.Command = name
		result.Args = args
		return result
	}
	return utils.CommandResult{Command: name, Args: args, ExitCode: 0}
}

func (f *fakeRunner) sawCommand(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.calls {
		if call[0] == key {
			return true
		}
		if call[0] == "sudo" && len(call) > 1 && "sudo "+call[1] == key {
			return true
		}
	}
	return false
}

func testConfig(t *testing.T, extra map[string]interface{}) *config.BackportConfig {
	t.Helper()
	attrs := config.DefaultAttributes()
	for k, v := range extra {
		attrs[k] = v
	}
	cfg, err := config.ParseBackportAttributes(attrs)
	if err != nil {
		t.Fatalf("ParseBackportAttributes failed: %v", err)
	}
	// Keep all filesystem effects inside the test directory.
	cfg.BackupDir = filepath.Join(t.TempDir(), cfg.WorkDir)
	return cfg
}

func testInstaller(t *testing.T, runner utils.CommandRunner, extra map[string]interface{}) *Installer {
	t.Helper()
	ins := NewInstaller(testConfig(t, extra), runner)
	ins.serviceSettleWait = time.Millisecond
	ins.agentSettleWait = time.Millisecond
	return ins
}

func versionResult(version string) utils.CommandResult {
	return utils.CommandResult{ExitCode: 0, Stdout: version + "\n"}
}

func TestInspectReportsTargetActive(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8 (Backport)"))

	ins := testInstaller(t, runner, nil)
	status := ins.Inspect(context.Background())

	if !status.IsBackported {
		t.Error("Expected is_backported for a version containing the target")
	}
	if status.Status != models.StatusInstalled {
		t.Errorf("Expected status %q, got %q", models.StatusInstalled, status.Status)
	}
	if status.CurrentVersion != "1.42.8 (Backport)" {
		t.Errorf("Unexpected current version: %q", status.CurrentVersion)
	}
}

func TestInspectReportsNeedsInstall(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.40.0"))

	ins := testInstaller(t, runner, nil)
	status := ins.Inspect(context.Background())

	if status.IsBackported {
		t.Error("Version 1.40.0 must not match target 1.42.8")
	}
	if status.Status != models.StatusNeedsInstall {
		t.Errorf("Expected status %q, got %q", models.StatusNeedsInstall, status.Status)
	}
}

func TestInspectUnknownVersionOnQueryFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", utils.CommandResult{ExitCode: 1, Stderr: "not found"})

	ins := testInstaller(t, runner, nil)
	status := ins.Inspect(context.Background())

	if status.CurrentVersion != "unknown" {
		t.Errorf("Expected version \"unknown\", got %q", status.CurrentVersion)
	}
	if status.Status == models.StatusError {
		t.Error("A failed version query must not produce an error snapshot")
	}
}

func TestInspectIdempotent(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.40.0"))

	ins := testInstaller(t, runner, nil)
	first := ins.Inspect(context.Background())
	second := ins.Inspect(context.Background())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Inspect must be an idempotent read: %+v vs %+v", first, second)
	}
}

func TestInspectDetectsLeftovers(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8"))

	ins := testInstaller(t, runner, nil)
	dir := ins.Config().BackupDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "network-manager.deb"), []byte("pkg"), 0644); err != nil {
		t.Fatal(err)
	}

	status := ins.Inspect(context.Background())
	if !status.BackportFilesExist {
		t.Error("Expected backport_files_exist when a .deb is present in the work directory")
	}
}

func TestInstallSkippedWhenAlreadyActive(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8 (Backport)"))

	ins := testInstaller(t, runner, nil)
	result := ins.Install(context.Background(), false)

	if !result.Success || result.Action != models.ActionSkipped {
		t.Fatalf("Expected skipped action, got %+v", result)
	}
	if runner.sawCommand("curl") {
		t.Error("Skipped install must not download")
	}
	if _, err := os.Stat(ins.Config().BackupDir); !os.IsNotExist(err) {
		t.Error("Skipped install must not create the work directory")
	}
}

func TestInstallForceProceedsThroughDownload(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8 (Backport)"))
	runner.reply("tar", utils.CommandResult{ExitCode: 0})

	ins := testInstaller(t, runner, nil)
	ins.Install(context.Background(), true)

	if !runner.sawCommand("curl") {
		t.Error("Forced install must proceed through the download step")
	}
}

// scriptHappyPath wires the runner so that extraction produces one .deb
// and every service command succeeds.
func scriptHappyPath(runner *fakeRunner, ins *Installer, version string) {
	runner.reply("NetworkManager", versionResult(version))
	runner.on("tar", func(dir string, args []string) utils.CommandResult {
		path := filepath.Join(ins.Config().BackupDir, "network-manager.deb")
		if err := os.WriteFile(path, []byte("pkg"), 0644); err != nil {
			return utils.CommandResult{ExitCode: 1, Stderr: err.Error()}
		}
		return utils.CommandResult{ExitCode: 0}
	})
}

func TestInstallHappyPath(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	scriptHappyPath(runner, ins, "1.40.0")

	result := ins.Install(context.Background(), false)

	if !result.Success || result.Action != models.ActionInstalled {
		t.Fatalf("Expected installed action, got %+v", result)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
	for _, key := range []string{"curl", "sudo dpkg", "sudo systemctl", "systemctl"} {
		if !runner.sawCommand(key) {
			t.Errorf("Expected %s to be invoked", key)
		}
	}
	if _, err := os.Stat(ins.Config().BackupDir); !os.IsNotExist(err) {
		t.Error("Work directory must be removed when cleanup_after_install is enabled")
	}
}

func TestInstallKeepsWorkDirWhenCleanupDisabled(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, map[string]interface{}{"cleanup_after_install": false})
	scriptHappyPath(runner, ins, "1.40.0")

	result := ins.Install(context.Background(), false)
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}
	if _, err := os.Stat(ins.Config().BackupDir); err != nil {
		t.Errorf("Work directory must survive when cleanup is disabled: %v", err)
	}
}

func TestInstallDownloadFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.40.0"))
	runner.reply("curl", utils.CommandResult{ExitCode: 22, Stderr: "curl: (22) 404"})

	ins := testInstaller(t, runner, nil)
	result := ins.Install(context.Background(), false)

	if result.Success || result.Action != models.ActionFailed {
		t.Fatalf("Expected failed action, got %+v", result)
	}
	if !strings.Contains(result.Error, "curl: (22) 404") {
		t.Errorf("Expected download error text to propagate, got %q", result.Error)
	}
}

func TestInstallFailsWithoutPackages(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.40.0"))
	// tar succeeds but produces no .deb files.
	runner.reply("tar", utils.CommandResult{ExitCode: 0})

	ins := testInstaller(t, runner, nil)
	result := ins.Install(context.Background(), false)

	if result.Success {
		t.Fatal("Install must fail when no packages are found")
	}
	if !strings.Contains(result.Error, "no .deb files found") {
		t.Errorf("Unexpected error: %q", result.Error)
	}
}

func TestInstallRepairFallbackSucceeds(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	scriptHappyPath(runner, ins, "1.40.0")
	runner.reply("sudo dpkg", utils.CommandResult{ExitCode: 1, Stderr: "dependency problems"})
	runner.reply("sudo apt-get", utils.CommandResult{ExitCode: 0})

	result := ins.Install(context.Background(), false)

	if !result.Success || result.Action != models.ActionInstalled {
		t.Fatalf("Repair fallback must rescue the install, got %+v", result)
	}
	if !runner.sawCommand("sudo apt-get") {
		t.Error("Expected the dependency-repair command to run")
	}
}

func TestInstallRepairFallbackFails(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	scriptHappyPath(runner, ins, "1.40.0")
	runner.reply("sudo dpkg", utils.CommandResult{ExitCode: 1, Stderr: "original dpkg error"})
	runner.reply("sudo apt-get", utils.CommandResult{ExitCode: 100, Stderr: "repair failed"})

	result := ins.Install(context.Background(), false)

	if result.Success {
		t.Fatal("Install must fail when repair also fails")
	}
	if !strings.Contains(result.Error, "original dpkg error") {
		t.Errorf("Expected the original install error, got %q", result.Error)
	}
}

func TestInstallRestartFailureIsWarning(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	scriptHappyPath(runner, ins, "1.40.0")
	runner.reply("sudo systemctl", utils.CommandResult{ExitCode: 1, Stderr: "unit busy"})

	result := ins.Install(context.Background(), false)

	if !result.Success {
		t.Fatalf("Restart failure must not fail the install, got %+v", result)
	}
	if len(result.Warnings) == 0 || !strings.Contains(result.Warnings[0], "restart NetworkManager") {
		t.Errorf("Expected a restart warning, got %v", result.Warnings)
	}
}

func TestInstallInactiveServiceIsWarning(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	scriptHappyPath(runner, ins, "1.40.0")
	runner.reply("systemctl", utils.CommandResult{ExitCode: 3, Stdout: "inactive"})

	result := ins.Install(context.Background(), false)

	if !result.Success {
		t.Fatalf("An inactive service must not fail the install, got %+v", result)
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "did not become active") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an inactive-service warning, got %v", result.Warnings)
	}
}

func TestInstallSkipsAgentRestartWhenDisabled(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, map[string]interface{}{"restart_viam_agent": false})
	scriptHappyPath(runner, ins, "1.40.0")

	result := ins.Install(context.Background(), false)
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, call := range runner.calls {
		if call[0] == "sudo" && len(call) > 3 && call[2] == "restart" && call[3] == ViamAgentService {
			t.Error("viam-agent must not be restarted when the flag is disabled")
		}
	}
}

func TestNMVersion(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8"))

	ins := testInstaller(t, runner, nil)
	info := ins.NMVersion(context.Background())

	if info.Version != "1.42.8" || !info.IsTargetVersion {
		t.Errorf("Unexpected version info: %+v", info)
	}
}

func TestValidateArchiveRemovesTempDir(t *testing.T) {
	runner := newFakeRunner()
	var downloadPath string
	runner.on("curl", func(dir string, args []string) utils.CommandResult {
		// curl -fsSL <url> -o <path>
		downloadPath = args[len(args)-1]
		if err := os.WriteFile(downloadPath, []byte("archive"), 0644); err != nil {
			return utils.CommandResult{ExitCode: 1, Stderr: err.Error()}
		}
		return utils.CommandResult{ExitCode: 0}
	})
	runner.reply("tar", utils.CommandResult{ExitCode: 0, Stdout: "a.deb\nb.deb\nREADME\n"})

	ins := testInstaller(t, runner, nil)
	result := ins.ValidateArchive(context.Background())

	if !result.Valid {
		t.Fatalf("Expected valid archive, got %+v", result)
	}
	if result.DebCount != 2 || result.FileCount != 3 {
		t.Errorf("Unexpected listing counts: %+v", result)
	}
	if downloadPath == "" {
		t.Fatal("Download path was never captured")
	}
	if _, err := os.Stat(filepath.Dir(downloadPath)); !os.IsNotExist(err) {
		t.Error("Temporary validation directory must be removed on success")
	}
}

func TestValidateArchiveRemovesTempDirOnFailure(t *testing.T) {
	runner := newFakeRunner()
	var downloadPath string
	runner.on("curl", func(dir string, args []string) utils.CommandResult {
		downloadPath = args[len(args)-1]
		return utils.CommandResult{ExitCode: 6, Stderr: "could not resolve host"}
	})

	ins := testInstaller(t, runner, nil)
	result := ins.ValidateArchive(context.Background())

	if result.Valid {
		t.Fatal("Expected validation failure")
	}
	if !strings.Contains(result.Error, "could not resolve host") {
		t.Errorf("Expected download error text, got %q", result.Error)
	}
	if downloadPath == "" {
		t.Fatal("Download path was never captured")
	}
	if _, err := os.Stat(filepath.Dir(downloadPath)); !os.IsNotExist(err) {
		t.Error("Temporary validation directory must be removed on failure")
	}
}

func TestCleanupFilesMissingDir(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)

	result := ins.CleanupFiles()
	if !result.Success || result.Message != "No files to clean up" {
		t.Errorf("Unexpected cleanup result: %+v", result)
	}
}

func TestCleanupFilesRemovesDir(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	if err := os.MkdirAll(ins.Config().BackupDir, 0755); err != nil {
		t.Fatal(err)
	}

	result := ins.CleanupFiles()
	if !result.Success {
		t.Fatalf("Expected cleanup success, got %+v", result)
	}
	if _, err := os.Stat(ins.Config().BackupDir); !os.IsNotExist(err) {
		t.Error("Work directory must be gone after cleanup")
	}
}

func TestHealthCheckTriggersInlineInstall(t *testing.T) {
	runner := newFakeRunner()
	ins := testInstaller(t, runner, nil)
	scriptHappyPath(runner, ins, "1.40.0")

	health := ins.HealthCheck(context.Background())

	if !health.ShouldAutoInstall {
		t.Error("Expected should_auto_install for an unconverged target")
	}
	if health.AutoInstallResult == nil {
		t.Fatal("Expected an inline install attempt")
	}
	if !health.AutoInstallResult.Success {
		t.Errorf("Inline install failed: %+v", health.AutoInstallResult)
	}
}

func TestHealthCheckHealthyWhenConverged(t *testing.T) {
	runner := newFakeRunner()
	runner.reply("NetworkManager", versionResult("1.42.8 (Backport)"))

	ins := testInstaller(t, runner, nil)
	health := ins.HealthCheck(context.Background())

	if health.OverallHealth != "healthy" {
		t.Errorf("Expected healthy, got %q", health.OverallHealth)
	}
	if health.AutoInstallResult != nil {
		t.Error("A converged target must not trigger an install")
	}
}
