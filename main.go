package main

import (
	"context"
	"os"

	"github.com/paularlott/cli"
	"github.com/paularlott/cli/env"

	"github.com/haught/akips-inventory/cmd/cache"
	"github.com/haught/akips-inventory/cmd/inventory"
	"github.com/haught/akips-inventory/cmd/server"
	"github.com/haught/akips-inventory/internal/log"
)

var (
	version = "dev"
)

func main() {
	// Load .env file if it exists
	env.Load()

	// Initialize structured logging
	log.Configure("info", "console")

	rootCmd := &cli.Command{
		Name:        "akips-inventory",
		Version:     version,
		Usage:       "Ansible dynamic inventory for the AKiPS network monitoring system",
		Description: "Fetches device groups and hosts from the AKiPS api-db endpoint, applies regex filters and variable rules, and emits an Ansible inventory",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file (default: akips.yml or akips.yaml if present)",
				EnvVars: []string{"AKIPS_CONFIG"},
				Global:  true,
			},
			&cli.StringFlag{
				Name:         "log-level",
				Usage:        "Log level (trace, debug, info, warn, error)",
				DefaultValue: "warn",
				EnvVars:      []string{"AKIPS_LOG_LEVEL"},
				Global:       true,
			},
			&cli.StringFlag{
				Name:         "log-format",
				Usage:        "Log format (console, json)",
				DefaultValue: "console",
				EnvVars:      []string{"AKIPS_LOG_FORMAT"},
				Global:       true,
			},
			// Classic inventory script interface: the runner execs the
			// program with --list or --host <name>.
			&cli.BoolFlag{
				Name:  "list",
				Usage: "Print the full inventory (inventory script contract)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Print variables for a single host (inventory script contract)",
			},
		},
		PreRun: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			log.Configure(cmd.GetString("log-level"), cmd.GetString("log-format"))
			return ctx, nil
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			if host := cmd.GetString("host"); host != "" {
				return inventory.RunHost(ctx, cmd, host)
			}
			return inventory.RunList(ctx, cmd)
		},
		Commands: []*cli.Command{
			inventory.ListCommand(),
			inventory.HostCommand(),
			server.Command(),
			{
				Name:        "cache",
				Usage:       "Response cache commands",
				Description: "Inspect and manage the api-db response cache",
				Commands:    cache.Commands(),
			},
		},
	}

	if err := rootCmd.Execute(context.Background()); err != nil {
		log.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
