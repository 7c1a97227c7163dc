package backport

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective backport configuration",
	Run: func(cmd *cobra.Command, args []string) {
		ins, err := newInstaller()
		if err != nil {
			fmt.Println(err)
			return
		}
		printJSON(ins.Config().Attributes())
	},
}

func init() {
	backportCmd.AddCommand(configCmd)
}
