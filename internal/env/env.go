package env

import (
	"os"
	"path/filepath"
)

var Daemon bool = false
var ListenPort int = 0

// (default: %USERPROFILE%/.backport-keeper on Windows, $HOME/.backport-keeper on Linux)
var KeeperDir string = GetKeeperDir()

// HomeDir is the base location under which the backport work directory is
// created.
var HomeDir string = GetHomeDir()

/**
 * Get keeper directory path
 * @returns {string} Returns keeper directory path
 */
func GetKeeperDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".backport-keeper")
}

func GetHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return homeDir
}
