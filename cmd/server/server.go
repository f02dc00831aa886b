package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/paularlott/cli"
	"github.com/robfig/cron/v3"

	"github.com/haught/akips-inventory/internal/api"
	"github.com/haught/akips-inventory/internal/config"
	"github.com/haught/akips-inventory/internal/inventory"
	"github.com/haught/akips-inventory/internal/log"
	"github.com/haught/akips-inventory/internal/mcp"
)

// Command returns the serve subcommand: a long-lived process for
// runners that poll inventory over HTTP instead of exec'ing a script.
func Command() *cli.Command {
	return &cli.Command{
		Name:        "serve",
		Usage:       "Serve the inventory over HTTP",
		Description: "Run an HTTP server exposing the inventory, with periodic refresh from AKiPS and an MCP endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:         "addr",
				Usage:        "Server listen address",
				DefaultValue: ":8080",
				EnvVars:      []string{"AKIPS_LISTEN_ADDR"},
			},
			&cli.StringFlag{
				Name:    "api-token",
				Usage:   "Bearer token required on /api/ routes",
				EnvVars: []string{"AKIPS_API_TOKEN"},
			},
			&cli.StringFlag{
				Name:    "mcp-token",
				Usage:   "Bearer token required on the /mcp endpoint",
				EnvVars: []string{"AKIPS_MCP_TOKEN"},
			},
			&cli.StringFlag{
				Name:         "refresh",
				Usage:        "Refresh schedule in cron syntax, or 'off'",
				DefaultValue: "@every 10m",
				EnvVars:      []string{"AKIPS_REFRESH"},
			},
		},
		Run: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(config.Find(cmd.GetString("config")))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsurePassword(); err != nil {
		return err
	}

	builder, closer, err := inventory.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	defer closer()

	// The first build must succeed; serving an empty inventory would
	// look like every host disappeared.
	first, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("initial inventory build failed: %w", err)
	}
	holder := inventory.NewHolder(first)

	refresh := func() error {
		next, err := builder.Build(context.Background())
		if err != nil {
			return err
		}
		holder.Update(next)
		return nil
	}

	apiHandler := api.NewHandler(holder, refresh)
	mcpServer := mcp.NewServer(holder, refresh, cmd.GetString("mcp-token"))

	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)
	mux.HandleFunc("/mcp", mcpServer.GetHTTPHandler())

	var handler http.Handler = mux
	if token := cmd.GetString("api-token"); token != "" {
		handler = api.AuthMiddleware(token, handler)
	}
	handler = api.SecurityHeadersMiddleware(handler)

	// Periodic refresh. A failed rebuild keeps the previous inventory.
	if spec := cmd.GetString("refresh"); spec != "" && spec != "off" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(spec, func() {
			if err := refresh(); err != nil {
				log.Error("Scheduled refresh failed, keeping previous inventory", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.Info("Refresh scheduler started", "schedule", spec)
	} else {
		log.Info("Periodic refresh disabled")
	}

	server := &http.Server{
		Addr:    cmd.GetString("addr"),
		Handler: handler,
	}

	// Handle shutdown gracefully
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Shutting down server")
		server.Close()
	}()

	log.Info("Starting inventory server", "addr", server.Addr,
		"groups", len(first.Groups()), "hosts", len(first.Hosts()))
	if cmd.GetString("api-token") != "" {
		log.Info("API authentication enabled")
	}
	mcpServer.LogStartup()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	log.Info("Server stopped")
	return nil
}
