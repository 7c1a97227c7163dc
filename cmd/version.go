package cmd

import (
	"fmt"

	"backport-keeper/cmd/root"
	"backport-keeper/services"

	"github.com/spf13/cobra"
)

// Stamped via -ldflags at release build time.
var SoftwareVer = ""
var BuildTime = ""
var BuildCommitId = ""

func PrintVersions() {
	ver := SoftwareVer
	if ver == "" {
		ver = services.Version
	}
	fmt.Printf("backport-keeper %s\n", ver)
	if BuildTime != "" {
		fmt.Printf("  built:  %s\n", BuildTime)
	}
	if BuildCommitId != "" {
		fmt.Printf("  commit: %s\n", BuildCommitId)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the binary version",
	Long:  `Print the version, build time and git commit this backport-keeper binary was built from`,

	Run: func(cmd *cobra.Command, args []string) {
		PrintVersions()
	},
}

func init() {
	root.RootCmd.AddCommand(versionCmd)

	versionCmd.Example = `  backport-keeper version`

	if SoftwareVer != "" {
		services.Version = SoftwareVer
	}
}
