package backport

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove the backport work directory",
	Run: func(cmd *cobra.Command, args []string) {
		ins, err := newInstaller()
		if err != nil {
			fmt.Println(err)
			return
		}
		printJSON(ins.CleanupFiles())
	},
}

func init() {
	backportCmd.AddCommand(cleanupCmd)
}
