package inventory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/paularlott/cli"

	"github.com/haught/akips-inventory/internal/config"
	inv "github.com/haught/akips-inventory/internal/inventory"
	"github.com/haught/akips-inventory/internal/log"
	"github.com/haught/akips-inventory/internal/model"
)

// ListCommand prints the full inventory as JSON on stdout
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:        "list",
		Usage:       "Print the full inventory",
		Description: "Fetch groups and hosts from AKiPS, apply the configured filters and variable rules, and print the inventory JSON",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return RunList(ctx, cmd)
		},
	}
}

// HostCommand prints one host's variables as JSON on stdout
func HostCommand() *cli.Command {
	return &cli.Command{
		Name:        "host",
		Usage:       "Print variables for a single host",
		Description: "Print the variable map for one host from the built inventory",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "name", Required: true},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			return RunHost(ctx, cmd, cmd.GetStringArg("name"))
		},
	}
}

// RunList implements the `list` subcommand and the root --list flag.
func RunList(ctx context.Context, cmd *cli.Command) error {
	built, closer, err := build(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer()

	data, err := json.MarshalIndent(built, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding inventory: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// RunHost implements the `host` subcommand and the root --host flag.
// An unknown host prints an empty map, which is what the runner expects
// from an inventory program rather than an error.
func RunHost(ctx context.Context, cmd *cli.Command, name string) error {
	built, closer, err := build(ctx, cmd)
	if err != nil {
		return err
	}
	defer closer()

	vars, ok := built.HostVars(name)
	if !ok {
		log.Debug("Host not in inventory", "host", name)
		fmt.Println("{}")
		return nil
	}
	data, err := json.MarshalIndent(vars, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding host variables: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func build(ctx context.Context, cmd *cli.Command) (*model.Inventory, func() error, error) {
	cfg, err := config.Load(config.Find(cmd.GetString("config")))
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsurePassword(); err != nil {
		return nil, nil, err
	}

	builder, closer, err := inv.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	built, err := builder.Build(ctx)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return built, closer, nil
}
