package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"backport-keeper/internal/config"
	"backport-keeper/internal/logger"
	"backport-keeper/internal/models"
	"backport-keeper/internal/utils"
)

const (
	// Managed service and the agent that depends on it.
	NetworkManagerService = "NetworkManager"
	ViamAgentService      = "viam-agent"

	// Settle waits after service restarts, before checking liveness.
	defaultServiceSettleWait = 5 * time.Second
	defaultAgentSettleWait   = 15 * time.Second
)

/**
 * Backport installer for one configuration generation
 * @description
 * - Wraps one immutable BackportConfig and a command runner
 * - Provides status inspection, the idempotent install procedure and the
 *   auxiliary operations (version query, archive validation, cleanup)
 * - Every operation returns a structured result, never a raw error:
 *   callers always observe failure as data
 */
type Installer struct {
	cfg    *config.BackportConfig
	runner utils.CommandRunner

	serviceSettleWait time.Duration
	agentSettleWait   time.Duration
}

func NewInstaller(cfg *config.BackportConfig, runner utils.CommandRunner) *Installer {
	return &Installer{
		cfg:               cfg,
		runner:            runner,
		serviceSettleWait: defaultServiceSettleWait,
		agentSettleWait:   defaultAgentSettleWait,
	}
}

func (ins *Installer) Config() *config.BackportConfig {
	return ins.cfg
}

/**
 * Inspect the current backport installation state
 * @param {context.Context} ctx - Context for the version query command
 * @returns {models.BackportStatus} Returns a point-in-time snapshot
 * @description
 * - Runs `NetworkManager --version`; nonzero exit reports "unknown"
 *   instead of failing the inspection
 * - is_backported is a case-sensitive substring test of the target
 *   version against the reported version string
 * - Filesystem errors while checking for leftover .deb files surface
 *   as status "error" in the snapshot, never as a Go error
 */
func (ins *Installer) Inspect(ctx context.Context) models.BackportStatus {
	result := ins.runner.Run(ctx, "", NetworkManagerService, "--version")
	currentVersion := "unknown"
	if result.Success() {
		currentVersion = strings.TrimSpace(result.Stdout)
	}

	isBackported := strings.Contains(currentVersion, ins.cfg.TargetVersion)

	status := models.BackportStatus{
		IsBackported:       isBackported,
		CurrentVersion:     currentVersion,
		TargetVersion:      ins.cfg.TargetVersion,
		AutoInstallEnabled: ins.cfg.AutoInstall,
		Platform:           ins.cfg.Platform,
		Description:        ins.cfg.Description,
		BackportURL:        ins.cfg.BackportURL,
		Status:             models.StatusNeedsInstall,
	}
	if isBackported {
		status.Status = models.StatusInstalled
	}

	filesExist, err := ins.backportFilesExist()
	if err != nil {
		status.Status = models.StatusError
		status.Error = err.Error()
		return status
	}
	status.BackportFilesExist = filesExist
	return status
}

func (ins *Installer) backportFilesExist() (bool, error) {
	if _, err := os.Stat(ins.cfg.BackupDir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	debs, err := filepath.Glob(filepath.Join(ins.cfg.BackupDir, "*.deb"))
	if err != nil {
		return false, err
	}
	return len(debs) > 0, nil
}

/**
 * Run the idempotent backport install procedure
 * @param {context.Context} ctx - Context observed at settle waits
 * @param {bool} force - Proceed even when the target version is active
 * @returns {models.InstallResult} Returns the structured outcome
 * @description
 * - Already at target and not forced: action "skipped", no writes
 * - Download/extract/enumerate/install failures: action "failed" with
 *   the captured command error text
 * - A dpkg failure triggers one dependency-repair attempt
 *   (`apt-get install -f -y`); if that also fails the install fails
 *   with the original dpkg error
 * - Service restart problems, an inactive service after the settle
 *   wait, agent restart problems and cleanup problems are warnings,
 *   not failures
 */
func (ins *Installer) Install(ctx context.Context, force bool) models.InstallResult {
	result := ins.install(ctx, force)
	recordInstallAttempt(result.Action)
	return result
}

func (ins *Installer) install(ctx context.Context, force bool) models.InstallResult {
	cfg := ins.cfg

	status := ins.Inspect(ctx)
	if status.IsBackported && !force {
		return models.InstallResult{
			Success:      true,
			Action:       models.ActionSkipped,
			Message:      "NetworkManager backport already installed",
			Version:      status.CurrentVersion,
			IsBackported: true,
		}
	}

	logger.Info("Starting NetworkManager backport installation...")
	logger.Infof("Installing %s", cfg.Description)
	logger.Infof("Target version: %s", cfg.TargetVersion)

	if err := os.MkdirAll(cfg.BackupDir, 0755); err != nil {
		return installFailure(fmt.Sprintf("failed to create work directory '%s': %v", cfg.BackupDir, err))
	}

	archivePath := filepath.Join(cfg.BackupDir, cfg.ArchiveName)
	logger.Infof("Downloading backport from %s", cfg.BackportURL)
	download := ins.runner.Run(ctx, "", "curl", "-fsSL", cfg.BackportURL, "-o", archivePath)
	if !download.Success() {
		return installFailure(fmt.Sprintf("failed to download backport: %s", download.Stderr))
	}

	if cfg.VerifyChecksum {
		if err := ins.verifyChecksum(ctx, archivePath); err != nil {
			return installFailure(err.Error())
		}
	}

	logger.Info("Extracting backport archive...")
	extract := ins.runner.Run(ctx, cfg.BackupDir, "tar", "-xvf", cfg.ArchiveName)
	if !extract.Success() {
		return installFailure(fmt.Sprintf("failed to extract archive: %s", extract.Stderr))
	}

	debFiles, err := filepath.Glob(filepath.Join(cfg.BackupDir, "*.deb"))
	if err != nil {
		return installFailure(fmt.Sprintf("failed to enumerate packages: %v", err))
	}
	if len(debFiles) == 0 {
		return installFailure("no .deb files found in extracted archive")
	}

	logger.Infof("Installing %d .deb packages...", len(debFiles))
	installArgs := append([]string{"dpkg", "-i"}, debFiles...)
	installRes := ins.runner.Run(ctx, "", "sudo", installArgs...)
	if !installRes.Success() {
		logger.Warn("dpkg install failed, attempting to fix dependencies...")
		fix := ins.runner.Run(ctx, "", "sudo", "apt-get", "install", "-f", "-y")
		if !fix.Success() {
			return installFailure(fmt.Sprintf("failed to install packages: %s", installRes.Stderr))
		}
	}

	var warnings []string

	logger.Info("Restarting NetworkManager service...")
	restart := ins.runner.Run(ctx, "", "sudo", "systemctl", "restart", NetworkManagerService)
	if !restart.Success() {
		warnings = append(warnings, fmt.Sprintf("failed to restart NetworkManager: %s", restart.Stderr))
		logger.Warnf("Failed to restart NetworkManager: %s", restart.Stderr)
	} else {
		warnings = append(warnings, ins.settleAndRestartAgent(ctx)...)
	}

	if cfg.CleanupAfterInstall {
		if err := os.RemoveAll(cfg.BackupDir); err != nil {
			warnings = append(warnings, fmt.Sprintf("cleanup failed: %v", err))
			logger.Warnf("Failed to clean up %s: %v", cfg.BackupDir, err)
		}
	}

	final := ins.Inspect(ctx)
	return models.InstallResult{
		Success:      true,
		Action:       models.ActionInstalled,
		Message:      "NetworkManager backport installed successfully",
		Version:      final.CurrentVersion,
		IsBackported: final.IsBackported,
		Warnings:     warnings,
	}
}

/**
 * Wait for NetworkManager to settle, then restart the dependent agent
 * @param {context.Context} ctx - Context observed during the waits
 * @returns {[]string} Returns warnings collected along the way
 * @description
 * - Sleeps the service settle interval, then checks `systemctl is-active`
 * - An inactive service is recorded as a warning; the install already
 *   happened, so the procedure does not abort
 * - When the service is active and restart_viam_agent is set, restarts
 *   the agent and sleeps the second, longer settle interval
 */
func (ins *Installer) settleAndRestartAgent(ctx context.Context) []string {
	var warnings []string

	if !sleepContext(ctx, ins.serviceSettleWait) {
		return warnings
	}

	active := ins.runner.Run(ctx, "", "systemctl", "is-active", NetworkManagerService)
	if !active.Success() {
		warnings = append(warnings, "NetworkManager did not become active after restart")
		logger.Error("NetworkManager did not become active after restart")
		return warnings
	}

	if !ins.cfg.RestartViamAgent {
		return warnings
	}

	logger.Info("Restarting viam-agent service...")
	restart := ins.runner.Run(ctx, "", "sudo", "systemctl", "restart", ViamAgentService)
	if !restart.Success() {
		warnings = append(warnings, fmt.Sprintf("failed to restart viam-agent: %s", restart.Stderr))
		logger.Warnf("Failed to restart viam-agent: %s", restart.Stderr)
		return warnings
	}
	sleepContext(ctx, ins.agentSettleWait)
	return warnings
}

func (ins *Installer) verifyChecksum(ctx context.Context, archivePath string) error {
	sum := ins.runner.Run(ctx, "", "sha256sum", archivePath)
	if !sum.Success() {
		return fmt.Errorf("failed to calculate checksum: %s", sum.Stderr)
	}
	fields := strings.Fields(sum.Stdout)
	if len(fields) == 0 {
		return fmt.Errorf("failed to calculate checksum: empty output")
	}
	if !strings.EqualFold(fields[0], ins.cfg.ExpectedChecksum) {
		return fmt.Errorf("archive checksum verification failed")
	}
	return nil
}

func installFailure(message string) models.InstallResult {
	logger.Errorf("Error installing backport: %s", message)
	return models.InstallResult{
		Success: false,
		Action:  models.ActionFailed,
		Error:   message,
	}
}

/**
 * Get the current NetworkManager version
 * @param {context.Context} ctx - Context for the version query command
 * @returns {models.VersionInfo} Returns the version string and whether it
 *   already contains the target version
 */
func (ins *Installer) NMVersion(ctx context.Context) models.VersionInfo {
	result := ins.runner.Run(ctx, "", NetworkManagerService, "--version")
	if !result.Success() {
		return models.VersionInfo{
			Error:  "failed to get NetworkManager version",
			Stderr: result.Stderr,
		}
	}
	version := strings.TrimSpace(result.Stdout)
	return models.VersionInfo{
		Version:         version,
		IsTargetVersion: strings.Contains(version, ins.cfg.TargetVersion),
	}
}

/**
 * Perform a composite health check
 * @param {context.Context} ctx - Context for command invocations
 * @returns {models.HealthResult} Returns overall health and component states
 * @description
 * - Checks the NetworkManager unit state and inspects the backport status
 * - When the target is not met and auto_install is enabled, triggers one
 *   synchronous install attempt inline and attaches its result
 */
func (ins *Installer) HealthCheck(ctx context.Context) models.HealthResult {
	active := ins.runner.Run(ctx, "", "systemctl", "is-active", NetworkManagerService)
	serviceActive := active.Success()

	status := ins.Inspect(ctx)
	shouldAutoInstall := ins.cfg.AutoInstall && !status.IsBackported

	health := models.HealthResult{
		OverallHealth:     "degraded",
		ServiceActive:     serviceActive,
		BackportStatus:    &status,
		ShouldAutoInstall: shouldAutoInstall,
		Timestamp:         time.Now().Format(time.RFC3339),
	}
	if serviceActive && status.IsBackported {
		health.OverallHealth = "healthy"
	}

	if shouldAutoInstall {
		logger.Info("Auto-installing NetworkManager backport...")
		result := ins.Install(ctx, false)
		health.AutoInstallResult = &result
	}
	return health
}

/**
 * Validate the configured backport archive without installing
 * @param {context.Context} ctx - Context for command invocations
 * @returns {models.ValidationResult} Returns the archive listing verdict
 * @description
 * - Downloads the archive into a private temporary directory
 * - Lists the archive contents (`tar -tf`) without extracting
 * - Reports whether .deb packages are present
 * - The temporary directory is removed on every exit path
 */
func (ins *Installer) ValidateArchive(ctx context.Context) models.ValidationResult {
	tempDir, err := os.MkdirTemp("", "backport-validate-")
	if err != nil {
		return models.ValidationResult{Valid: false, Error: err.Error()}
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, ins.cfg.ArchiveName)
	download := ins.runner.Run(ctx, "", "curl", "-fsSL", ins.cfg.BackportURL, "-o", archivePath)
	if !download.Success() {
		return models.ValidationResult{
			Valid: false,
			Error: fmt.Sprintf("failed to download: %s", download.Stderr),
		}
	}

	if ins.cfg.VerifyChecksum {
		if err := ins.verifyChecksum(ctx, archivePath); err != nil {
			return models.ValidationResult{Valid: false, Error: err.Error()}
		}
	}

	listing := ins.runner.Run(ctx, tempDir, "tar", "-tf", ins.cfg.ArchiveName)
	if !listing.Success() {
		return models.ValidationResult{
			Valid: false,
			Error: fmt.Sprintf("failed to examine archive: %s", listing.Stderr),
		}
	}

	var files []string
	for _, line := range strings.Split(strings.TrimSpace(listing.Stdout), "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	var debFiles []string
	for _, f := range files {
		if strings.HasSuffix(f, ".deb") {
			debFiles = append(debFiles, f)
		}
	}

	var size int64
	if info, err := os.Stat(archivePath); err == nil {
		size = info.Size()
	}

	return models.ValidationResult{
		Valid:       true,
		ArchiveSize: size,
		FileCount:   len(files),
		DebFiles:    debFiles,
		DebCount:    len(debFiles),
		AllFiles:    files,
	}
}

/**
 * Remove the backport work directory
 * @returns {models.CleanupResult} Returns the cleanup outcome
 * @description
 * - Removes the work directory recursively when it exists
 * - A missing directory counts as success ("no files to clean up")
 */
func (ins *Installer) CleanupFiles() models.CleanupResult {
	if _, err := os.Stat(ins.cfg.BackupDir); err != nil {
		if os.IsNotExist(err) {
			return models.CleanupResult{Success: true, Message: "No files to clean up"}
		}
		return models.CleanupResult{Success: false, Error: err.Error()}
	}
	if err := os.RemoveAll(ins.cfg.BackupDir); err != nil {
		return models.CleanupResult{Success: false, Error: err.Error()}
	}
	return models.CleanupResult{
		Success: true,
		Message: fmt.Sprintf("Cleaned up %s", ins.cfg.BackupDir),
	}
}

/**
 * List known backports alongside the current configuration
 * @returns {models.BackportListing} Returns catalog entries and config context
 */
func (ins *Installer) ListBackports() models.BackportListing {
	return models.BackportListing{
		AvailableBackports: []models.BackportCatalogEntry{
			{
				Version:     config.DefaultTargetVersion,
				Platform:    config.DefaultPlatform,
				URL:         config.DefaultBackportURL,
				Description: config.DefaultDescription,
				Features:    []string{"scanning-in-ap-mode"},
			},
		},
		CurrentConfig: map[string]interface{}{
			"target_version": ins.cfg.TargetVersion,
			"platform":       ins.cfg.Platform,
		},
	}
}

// sleepContext waits d, returning false when ctx is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
