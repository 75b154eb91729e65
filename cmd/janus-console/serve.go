package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/bluelx/janus-console/pkg/config"
	"github.com/bluelx/janus-console/pkg/logging"
	"github.com/bluelx/janus-console/pkg/storage"
	"github.com/bluelx/janus-console/pkg/web"
)

func runServeCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to janus-console.yaml (default: ./janus-console.yaml)")
	bind := fs.String("bind", "", "address to bind the HTTP server (overrides config)")
	staticDir := fs.String("static", "", "directory of built UI assets to serve at /")
	watch := fs.Bool("watch", true, "reload remote settings when the config file changes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *bind != "" {
		cfg.Server.BindAddress = *bind
	}
	if *staticDir != "" {
		cfg.Server.StaticDir = *staticDir
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("open logs: %w", err)
	}
	defer logger.Close()
	logger.SetMinLevel(logging.Level(cfg.Logging.Level))

	store, err := storage.New(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	server := web.NewServer(cfg, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(ctx)
	})

	watchPath := *configPath
	if watchPath == "" {
		watchPath = "janus-console.yaml"
	}
	if *watch {
		if _, statErr := os.Stat(watchPath); statErr == nil {
			watcher, err := config.NewWatcher(watchPath, server.Reload)
			if err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			g.Go(func() error {
				err := watcher.Run(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	fmt.Printf("janus-console listening on %s\n", cfg.Server.BindAddress)
	return g.Wait()
}
