package config

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"backport-keeper/internal/env"
)

// Default configuration for the original GOST Jammy backport.
const (
	DefaultBackportURL   = "https://storage.googleapis.com/packages.viam.com/ubuntu/jammy-nm-backports.tar"
	DefaultTargetVersion = "1.42.8"
	DefaultWorkDir       = "nm-backports-install"
	DefaultPlatform      = "ubuntu-22.04"
	DefaultDescription   = "NetworkManager 1.42.8 backport for Ubuntu 22.04 (Jammy)"

	DefaultCheckInterval = 60 * time.Second
)

var ErrNotConfigured = errors.New("backport installer is not configured")

/**
 * Validated backport configuration
 * @property {string} BackportURL - Archive source location (http/https)
 * @property {string} TargetVersion - Version substring that marks convergence
 * @property {string} WorkDir - Working directory name under the home directory
 * @property {string} Platform - Platform identifier (e.g. ubuntu-22.04)
 * @property {string} ArchiveName - Derived from the URL's last path segment
 * @property {string} BackupDir - Derived absolute work directory path
 * @description
 * - Produced only by ParseBackportAttributes; a value of this type is
 *   always fully valid ("configured"), there is no partial state
 * - Instances are immutable per configuration generation and swapped
 *   wholesale on reconfigure, never mutated in place
 */
type BackportConfig struct {
	BackportURL   string
	TargetVersion string
	WorkDir       string
	Platform      string
	Description   string

	AutoInstall         bool
	CheckInterval       time.Duration
	ForceReinstall      bool
	CleanupAfterInstall bool
	RestartViamAgent    bool
	VerifyChecksum      bool
	ExpectedChecksum    string

	ArchiveName string
	BackupDir   string
}

/**
 * Get the default attribute mapping for the jammy backport
 * @returns {map[string]interface{}} Attribute mapping
 */
func DefaultAttributes() map[string]interface{} {
	return map[string]interface{}{
		"backport_url":   DefaultBackportURL,
		"target_version": DefaultTargetVersion,
		"work_dir":       DefaultWorkDir,
		"platform":       DefaultPlatform,
		"description":    DefaultDescription,
	}
}

/**
 * Validate a raw attribute mapping and build a BackportConfig
 * @param {map[string]interface{}} attrs - Raw configuration attributes
 * @returns {*BackportConfig} Returns the validated configuration
 * @returns {error} Returns a rejection describing the first invalid attribute
 * @description
 * - backport_url must be a string starting with http:// or https://
 * - target_version, work_dir and platform must be non-empty strings
 * - Optional flags must be booleans when present
 * - check_interval must be a strictly positive number of seconds
 * - The archive name is derived from the URL path; an empty final
 *   segment rejects the configuration
 * - Attribute values typically arrive via JSON, so numbers may be
 *   float64 as well as integers
 */
func ParseBackportAttributes(attrs map[string]interface{}) (*BackportConfig, error) {
	backportURL, err := requireString(attrs, "backport_url")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(backportURL, "http://") && !strings.HasPrefix(backportURL, "https://") {
		return nil, fmt.Errorf("backport_url must be a valid HTTP/HTTPS URL")
	}

	targetVersion, err := requireString(attrs, "target_version")
	if err != nil {
		return nil, err
	}
	workDir, err := requireString(attrs, "work_dir")
	if err != nil {
		return nil, err
	}
	platform, err := requireString(attrs, "platform")
	if err != nil {
		return nil, err
	}
	description, err := optionalString(attrs, "description", "")
	if err != nil {
		return nil, err
	}

	autoInstall, err := optionalBool(attrs, "auto_install", true)
	if err != nil {
		return nil, err
	}
	forceReinstall, err := optionalBool(attrs, "force_reinstall", false)
	if err != nil {
		return nil, err
	}
	cleanup, err := optionalBool(attrs, "cleanup_after_install", true)
	if err != nil {
		return nil, err
	}
	restartAgent, err := optionalBool(attrs, "restart_viam_agent", true)
	if err != nil {
		return nil, err
	}
	verifyChecksum, err := optionalBool(attrs, "verify_checksum", false)
	if err != nil {
		return nil, err
	}
	expectedChecksum, err := optionalString(attrs, "expected_checksum", "")
	if err != nil {
		return nil, err
	}
	if verifyChecksum && strings.TrimSpace(expectedChecksum) == "" {
		return nil, fmt.Errorf("expected_checksum must be provided when verify_checksum is true")
	}

	interval, err := optionalSeconds(attrs, "check_interval", DefaultCheckInterval)
	if err != nil {
		return nil, err
	}

	archiveName, err := deriveArchiveName(backportURL)
	if err != nil {
		return nil, err
	}

	cfg := &BackportConfig{
		BackportURL:         backportURL,
		TargetVersion:       targetVersion,
		WorkDir:             workDir,
		Platform:            platform,
		Description:         description,
		AutoInstall:         autoInstall,
		CheckInterval:       interval,
		ForceReinstall:      forceReinstall,
		CleanupAfterInstall: cleanup,
		RestartViamAgent:    restartAgent,
		VerifyChecksum:      verifyChecksum,
		ExpectedChecksum:    expectedChecksum,
		ArchiveName:         archiveName,
		BackupDir:           filepath.Join(env.HomeDir, workDir),
	}
	return cfg, nil
}

/**
 * Derive the archive file name from the backport URL
 * @param {string} rawURL - Backport archive URL
 * @returns {string} Returns the final path segment of the URL
 * @returns {error} Returns error when the segment is empty
 * @description
 * - A trailing slash means the last path segment is empty; path.Base
 *   would silently strip it and return the parent segment, so the
 *   shape is checked before deriving the name
 */
func deriveArchiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("backport_url is not a parseable URL: %v", err)
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "", fmt.Errorf("backport_url has no archive file name in its path")
	}
	name := path.Base(u.Path)
	if name == "" || name == "." {
		return "", fmt.Errorf("backport_url has no archive file name in its path")
	}
	return name, nil
}

/**
 * Get the effective attribute mapping of this configuration
 * @returns {map[string]interface{}} Attribute mapping including derived paths
 * @description
 * - Used by the get_config command to echo the full effective state
 */
func (cfg *BackportConfig) Attributes() map[string]interface{} {
	return map[string]interface{}{
		"backport_url":          cfg.BackportURL,
		"target_version":        cfg.TargetVersion,
		"archive_name":          cfg.ArchiveName,
		"work_dir":              cfg.WorkDir,
		"platform":              cfg.Platform,
		"description":           cfg.Description,
		"auto_install":          cfg.AutoInstall,
		"check_interval":        cfg.CheckInterval.Seconds(),
		"force_reinstall":       cfg.ForceReinstall,
		"cleanup_after_install": cfg.CleanupAfterInstall,
		"restart_viam_agent":    cfg.RestartViamAgent,
		"verify_checksum":       cfg.VerifyChecksum,
		"backup_dir":            cfg.BackupDir,
	}
}

func requireString(attrs map[string]interface{}, key string) (string, error) {
	raw, ok := attrs[key]
	if !ok {
		return "", fmt.Errorf("%s is required", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return s, nil
}

func optionalString(attrs map[string]interface{}, key string, def string) (string, error) {
	raw, ok := attrs[key]
	if !ok || raw == nil {
		return def, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

func optionalBool(attrs map[string]interface{}, key string, def bool) (bool, error) {
	raw, ok := attrs[key]
	if !ok {
		return def, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean", key)
	}
	return b, nil
}

func optionalSeconds(attrs map[string]interface{}, key string, def time.Duration) (time.Duration, error) {
	raw, ok := attrs[key]
	if !ok {
		return def, nil
	}
	var secs float64
	switch v := raw.(type) {
	case int:
		secs = float64(v)
	case int64:
		secs = float64(v)
	case float64:
		secs = v
	default:
		return 0, fmt.Errorf("%s must be a positive number", key)
	}
	if secs <= 0 {
		return 0, fmt.Errorf("%s must be a positive number", key)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
