package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/NicolasHaas/gopanel/pkg/config"
	"github.com/NicolasHaas/gopanel/pkg/logging"
	"github.com/NicolasHaas/gopanel/ui"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "YAML config file")
	envFile := flag.String("env", "", "Optional .env file with PANEL_* overrides")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(*cfgPath, envFiles...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	if err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	app, err := ui.NewApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}
	app.Run()
}
