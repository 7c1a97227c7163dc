package models

// Installation status values reported by status inspection.
const (
	StatusInstalled    = "installed"
	StatusNeedsInstall = "needs_install"
	StatusError        = "error"
)

// Install actions reported by the install procedure.
const (
	ActionInstalled = "installed"
	ActionSkipped   = "skipped"
	ActionFailed    = "failed"
)

// BackportStatus 备份移植安装状态快照
// @Description Point-in-time snapshot of the backport installation state
type BackportStatus struct {
	IsBackported       bool   `json:"is_backported"`
	CurrentVersion     string `json:"current_version"`
	TargetVersion      string `json:"target_version"`
	BackportFilesExist bool   `json:"backport_files_exist"`
	AutoInstallEnabled bool   `json:"auto_install_enabled"`
	Platform           string `json:"platform"`
	Description        string `json:"description"`
	BackportURL        string `json:"backport_url"`
	Status             string `json:"status" example:"needs_install"`
	Error              string `json:"error,omitempty"`
}

// InstallResult 安装流程执行结果
// @Description Result of one run of the install procedure
type InstallResult struct {
	Success      bool     `json:"success"`
	Action       string   `json:"action" example:"installed"`
	Message      string   `json:"message,omitempty"`
	Version      string   `json:"version,omitempty"`
	IsBackported bool     `json:"is_backported"`
	Error        string   `json:"error,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
}

// VersionInfo NetworkManager版本信息
// @Description Current NetworkManager version as reported by the binary
type VersionInfo struct {
	Version         string `json:"version,omitempty"`
	IsTargetVersion bool   `json:"is_target_version"`
	Error           string `json:"error,omitempty"`
	Stderr          string `json:"stderr,omitempty"`
}

// ValidationResult 归档文件校验结果
// @Description Dry-run validation of the configured backport archive
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	ArchiveSize int64    `json:"archive_size,omitempty"`
	FileCount   int      `json:"file_count,omitempty"`
	DebFiles    []string `json:"deb_files,omitempty"`
	DebCount    int      `json:"deb_count"`
	AllFiles    []string `json:"all_files,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// CleanupResult 清理工作目录的结果
// @Description Result of removing the backport work directory
type CleanupResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResult 综合健康检查结果
// @Description Composite health check: service state plus backport status
type HealthResult struct {
	OverallHealth     string          `json:"overall_health" example:"healthy"`
	ServiceActive     bool            `json:"networkmanager_service_active"`
	BackportStatus    *BackportStatus `json:"backport_status,omitempty"`
	ShouldAutoInstall bool            `json:"should_auto_install"`
	Timestamp         string          `json:"timestamp"`
	AutoInstallResult *InstallResult  `json:"auto_install_result,omitempty"`
	Error             string          `json:"error,omitempty"`
}

// BackportCatalogEntry 可用备份移植条目
// @Description One known backport distribution
type BackportCatalogEntry struct {
	Version     string   `json:"version"`
	Platform    string   `json:"platform"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	Features    []string `json:"features,omitempty"`
}

// BackportListing 可用备份移植列表
// @Description Known backports plus the current configuration context
type BackportListing struct {
	AvailableBackports []BackportCatalogEntry `json:"available_backports"`
	CurrentConfig      map[string]interface{} `json:"current_config"`
}

// HealthResponse 健康检查响应结构
// @Description 健康检查API响应数据结构
type HealthResponse struct {
	Version   string  `json:"version" example:"1.0.0"`
	StartTime string  `json:"startTime" example:"2024-01-01T10:00:00Z"`
	Status    string  `json:"status" example:"UP"`
	Uptime    string  `json:"uptime" example:"1h30m45s"`
	Metrics   Metrics `json:"metrics"`
}

// Metrics 关键指标结构
// @Description 系统关键指标数据结构
type Metrics struct {
	TotalRequests     int64 `json:"totalRequests" example:"1000"`
	ErrorRequests     int64 `json:"errorRequests" example:"5"`
	InstallAttempts   int64 `json:"installAttempts" example:"2"`
	ReconcilerRunning bool  `json:"reconcilerRunning" example:"true"`
}
