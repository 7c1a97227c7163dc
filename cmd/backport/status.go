package backport

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the backport is installed",
	Run: func(cmd *cobra.Command, args []string) {
		ins, err := newInstaller()
		if err != nil {
			fmt.Println(err)
			return
		}
		printJSON(ins.Inspect(cmd.Context()))
	},
}

func init() {
	backportCmd.AddCommand(statusCmd)
}
