package backport

import (
	"encoding/json"
	"fmt"

	"backport-keeper/cmd/root"
	"backport-keeper/internal/config"
	"backport-keeper/internal/utils"
	"backport-keeper/services"

	"github.com/spf13/cobra"
)

var backportCmd = &cobra.Command{
	Use:   "backport",
	Short: "Manage the NetworkManager backport",
}

/**
 * Build an installer from the file configuration
 * @returns {*services.Installer} Returns installer for one-shot commands
 * @returns {error} Returns the validation rejection, if any
 * @description
 * - Missing required attributes are filled from the default jammy backport
 */
func newInstaller() (*services.Installer, error) {
	attrs := config.App().BackportAttributes()
	bc, err := config.ParseBackportAttributes(attrs)
	if err != nil {
		return nil, fmt.Errorf("invalid backport configuration: %v", err)
	}
	return services.NewInstaller(bc, utils.ExecRunner{}), nil
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(string(data))
}

func init() {
	root.RootCmd.AddCommand(backportCmd)
}
