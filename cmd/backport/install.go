package backport

import (
	"fmt"

	"github.com/spf13/cobra"
)

var optForce bool

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download and install the configured backport",
	Run: func(cmd *cobra.Command, args []string) {
		ins, err := newInstaller()
		if err != nil {
			fmt.Println(err)
			return
		}
		printJSON(ins.Install(cmd.Context(), optForce))
	},
}

func init() {
	installCmd.Flags().BoolVarP(&optForce, "force", "f", false, "Reinstall even when the target version is already active")
	backportCmd.AddCommand(installCmd)
}
