package services

import (
	"context"
	"fmt"

	"backport-keeper/internal/utils"
)

// AvailableCommands is the fixed set of dispatcher operation names.
var AvailableCommands = []string{
	"check_status",
	"install_backport",
	"get_nm_version",
	"get_config",
	"list_backports",
	"validate_archive",
	"health_check",
	"cleanup_files",
}

/**
 * Synchronous request/response surface over the installer
 * @description
 * - Maps named operations onto the installer of the server's current
 *   configuration generation, independent of the reconciliation loop's
 *   own schedule
 * - Always answers with a field mapping; unknown names and the
 *   unconfigured state are structured results, never faults
 */
type Dispatcher struct {
	server *Server
}

func NewDispatcher(server *Server) *Dispatcher {
	return &Dispatcher{server: server}
}

/**
 * Dispatch one named command
 * @param {context.Context} ctx - Context threaded into command invocations
 * @param {map[string]interface{}} request - Request with a "command" field
 * @returns {map[string]interface{}} Returns the operation's result fields
 * @description
 * - install_backport honors an optional boolean "force" field; without
 *   it the configured force_reinstall flag applies
 * - Unknown command names return an error result enumerating the valid
 *   names
 */
func (d *Dispatcher) DoCommand(ctx context.Context, request map[string]interface{}) map[string]interface{} {
	name, _ := request["command"].(string)
	recordCommand(name)

	ins := d.server.Installer()
	if ins == nil {
		return map[string]interface{}{
			"status": "not_configured",
			"error":  "backport installer is not configured",
		}
	}

	switch name {
	case "check_status":
		return utils.StructToMap(ins.Inspect(ctx))
	case "install_backport":
		force := ins.Config().ForceReinstall
		if f, ok := request["force"].(bool); ok {
			force = f
		}
		return utils.StructToMap(ins.Install(ctx, force))
	case "get_nm_version":
		return utils.StructToMap(ins.NMVersion(ctx))
	case "get_config":
		return ins.Config().Attributes()
	case "list_backports":
		return utils.StructToMap(ins.ListBackports())
	case "validate_archive":
		return utils.StructToMap(ins.ValidateArchive(ctx))
	case "health_check":
		return utils.StructToMap(ins.HealthCheck(ctx))
	case "cleanup_files":
		return utils.StructToMap(ins.CleanupFiles())
	default:
		return map[string]interface{}{
			"error":              fmt.Sprintf("Unknown command: %s", name),
			"available_commands": AvailableCommands,
		}
	}
}
