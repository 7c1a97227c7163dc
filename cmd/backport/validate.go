package backport

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured archive without installing",
	Run: func(cmd *cobra.Command, args []string) {
		ins, err := newInstaller()
		if err != nil {
			fmt.Println(err)
			return
		}
		printJSON(ins.ValidateArchive(cmd.Context()))
	},
}

func init() {
	backportCmd.AddCommand(validateCmd)
}
