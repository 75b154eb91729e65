package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bluelx/janus-console/pkg/engine"
)

func runPingCommand(args []string) error {
	fs := flag.NewFlagSet("ping", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to janus-console.yaml")
	timeout := fs.Duration("timeout", 15*time.Second, "connection deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.Remote.URL == "" {
		return fmt.Errorf("remote.url is not configured")
	}

	client := engine.New(cfg.Remote, cfg.Logging.Dir)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	fmt.Printf("gateway %s reachable (%s)\n", client.Endpoint(), time.Since(start).Round(time.Millisecond))
	return nil
}
