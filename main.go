package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/CameronChurchwell/penn/cmd"
	"github.com/CameronChurchwell/penn/internal/conf"
	"github.com/CameronChurchwell/penn/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logPath := ""
	if settings.Main.Log.Enabled {
		logPath = settings.Main.Log.Path
	}
	logging.Init(logPath, level)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Human().Error("command failed", "error", err)
		os.Exit(1)
	}
}
