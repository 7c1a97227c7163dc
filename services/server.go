package services

import (
	"sync"
	"time"

	"backport-keeper/internal/config"
	"backport-keeper/internal/logger"
	"backport-keeper/internal/models"
	"backport-keeper/internal/utils"
)

// Version is stamped at build time (see cmd/version.go).
var Version = "dev"

/**
 * Top-level owner of the installer generation and the reconciliation loop
 * @description
 * - Holds the current Installer built from the last accepted
 *   configuration; nil means unconfigured
 * - Reconfigure swaps the installer atomically and replaces the
 *   reconciliation loop; a rejected configuration leaves the previous
 *   generation (or the unconfigured state) untouched
 */
type Server struct {
	cfg        *config.AppConfig
	runner     utils.CommandRunner
	reconciler *Reconciler
	startTime  time.Time

	mu        sync.RWMutex
	installer *Installer
}

/**
 * Create a new server instance
 * @param {*config.AppConfig} cfg - Application configuration
 * @returns {*Server} Returns the server with an exec-backed command runner
 */
func NewServer(cfg *config.AppConfig) *Server {
	return &Server{
		cfg:        cfg,
		runner:     utils.ExecRunner{},
		reconciler: NewReconciler(),
		startTime:  time.Now(),
	}
}

// NewServerWithRunner is used by tests to substitute the command runner.
func NewServerWithRunner(cfg *config.AppConfig, runner utils.CommandRunner) *Server {
	s := NewServer(cfg)
	s.runner = runner
	return s
}

// Installer returns the current configuration generation, nil when
// unconfigured.
func (s *Server) Installer() *Installer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.installer
}

func (s *Server) Reconciler() *Reconciler {
	return s.reconciler
}

/**
 * Apply the initial configuration from the config file
 * @returns {error} Returns error when the file attributes are invalid
 * @description
 * - Missing required attributes are filled from the default jammy
 *   backport, so a bare config file yields a working setup
 */
func (s *Server) Init() error {
	return s.Reconfigure(s.cfg.BackportAttributes())
}

/**
 * Replace the configuration with a new attribute mapping
 * @param {map[string]interface{}} attrs - Raw configuration attributes
 * @returns {error} Returns the validation rejection, if any
 * @description
 * - Validation failure keeps the previous installer and loop running
 * - On success the old loop is cancelled and joined before a new one
 *   starts, so passes from different generations never overlap
 * - The new loop starts only when auto_install is enabled
 */
func (s *Server) Reconfigure(attrs map[string]interface{}) error {
	bc, err := config.ParseBackportAttributes(attrs)
	if err != nil {
		logger.Errorf("Configuration rejected: %v", err)
		return err
	}

	ins := NewInstaller(bc, s.runner)

	s.mu.Lock()
	s.installer = ins
	s.mu.Unlock()

	logger.Infof("Reconfigured for %s", bc.Description)
	logger.Infof("Target: %s from %s", bc.TargetVersion, bc.BackportURL)
	logger.Infof("Auto-install: %v, Force: %v", bc.AutoInstall, bc.ForceReinstall)

	s.reconciler.Stop()
	if bc.AutoInstall {
		s.reconciler.Start(ins)
	}
	return nil
}

/**
 * Shut the server down
 * @description
 * - Cancels the reconciliation loop unconditionally and waits for it
 */
func (s *Server) Shutdown() {
	s.reconciler.Stop()
}

/**
 * Build the healthz response for the readiness probe
 * @returns {models.HealthResponse} Returns uptime, status and key metrics
 */
func (s *Server) GetHealthz() models.HealthResponse {
	return models.HealthResponse{
		Version:   Version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Metrics: models.Metrics{
			TotalRequests:     GetTotalRequests(),
			ErrorRequests:     GetTotalErrors(),
			InstallAttempts:   GetTotalInstallAttempts(),
			ReconcilerRunning: s.reconciler.Running(),
		},
	}
}
