package root

import (
	"github.com/spf13/cobra"
)

var RootCmd = &cobra.Command{
	Use:   "backport-keeper",
	Short: "NetworkManager backport installer",
	Long:  `backport-keeper manages the download, installation and supervision of NetworkManager backports on a machine`,
}
