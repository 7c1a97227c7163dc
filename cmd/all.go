package cmd

import (
	_ "backport-keeper/cmd/backport"
	_ "backport-keeper/cmd/root"
	_ "backport-keeper/cmd/server"
)
