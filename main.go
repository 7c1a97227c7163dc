package main

import (
	"os"

	_ "backport-keeper/cmd"
	"backport-keeper/cmd/root"
	"backport-keeper/internal/config"
	"backport-keeper/internal/logger"
)

func main() {
	// 检查是否是服务器模式
	isServerMode := len(os.Args) > 1 && os.Args[1] == "server"

	cfg := config.App()
	logger.InitLogger(cfg.Log.Path, cfg.Log.Level, isServerMode)

	if err := root.RootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
