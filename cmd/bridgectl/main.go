// Command bridgectl runs scripts against the native Go modules of the bridge.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joeycumines/go-nativebridge/internal/command"
	"github.com/joeycumines/go-nativebridge/internal/config"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Warning: no config path: %v\n", err)
	}

	cfg := config.NewConfig()
	if configPath != "" {
		if cfg, err = config.LoadFromPath(configPath); err != nil {
			return err
		}
	}

	return newRegistry(cfg, configPath).Run(args, stdout, stderr)
}

func newRegistry(cfg *config.Config, configPath string) *command.Registry {
	registry := command.NewRegistry()
	registry.Register(command.NewHelpCommand(registry))
	registry.Register(command.NewVersionCommand(version))
	registry.Register(command.NewConfigCommand(cfg, configPath))
	registry.Register(command.NewRunCommand(cfg))
	registry.Register(command.NewModulesCommand(cfg))
	return registry
}
