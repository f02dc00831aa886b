package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/paularlott/cli"

	"github.com/haught/akips-inventory/internal/cache"
	"github.com/haught/akips-inventory/internal/config"
)

// Commands returns the cache management subcommands.
func Commands() []*cli.Command {
	return []*cli.Command{
		infoCommand(),
		purgeCommand(),
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:        "info",
		Usage:       "Show response cache status",
		Description: "Show the cache database path, entry count, and oldest entry age",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			count, oldest, err := store.Info()
			if err != nil {
				return fmt.Errorf("reading cache info: %w", err)
			}

			fmt.Printf("Cache: %s\n", store.Path())
			fmt.Printf("Entries: %d\n", count)
			if !oldest.IsZero() {
				fmt.Printf("Oldest entry: %s\n", oldest.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:        "purge",
		Usage:       "Remove all cached responses",
		Description: "Delete every cached api-db response so the next run fetches live data",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			store, err := open(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Purge(); err != nil {
				return fmt.Errorf("purging cache: %w", err)
			}
			fmt.Println("Cache purged")
			return nil
		},
	}
}

func open(cmd *cli.Command) (*cache.Store, error) {
	cfg, err := config.Load(config.Find(cmd.GetString("config")))
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

// openStore opens the cache database for a management command. A
// disabled cache is an error rather than an empty database: opening
// would create the file under cache.dir as a side effect.
func openStore(cfg *config.Config) (*cache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, errors.New("response cache is disabled (set cache.enabled in akips.yml or AKIPS_CACHE)")
	}
	return cache.Open(cfg.Cache.Dir, cfg.Cache.TTL)
}
