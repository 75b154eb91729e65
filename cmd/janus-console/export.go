package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bluelx/janus-console/pkg/engine"
	"github.com/bluelx/janus-console/pkg/export"
	"github.com/bluelx/janus-console/pkg/logging"
)

func runExportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to janus-console.yaml")
	metano := fs.String("metano", "", "dataset identifier to export (required)")
	format := fs.String("format", "", "output format: csv or xlsx (default: config)")
	outPath := fs.String("out", "", "output file path (default: <export dir>/<metano>.<ext>)")
	timeout := fs.Duration("timeout", 30*time.Minute, "overall export deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *metano == "" {
		return fmt.Errorf("-metano is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir)
	if err != nil {
		return err
	}
	defer logger.Close()

	client := engine.New(cfg.Remote, cfg.Logging.Dir)
	defer client.Close()

	fmtChoice := cfg.Export.Format
	if *format != "" {
		fmtChoice = *format
	}
	parsed, err := export.ParseFormat(fmtChoice)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	exporter := export.New(client, cfg.Export.Dir, parsed, export.WithLogger(logger))
	result, err := exporter.Run(ctx, *metano, export.Options{Path: *outPath})
	if err != nil {
		return fmt.Errorf("export failed (%s): %s", result.Code, result.Message)
	}

	fmt.Printf("exported %d rows (%d pages) to %s in %s\n",
		result.Rows, result.Pages, result.Path, result.Duration.Round(time.Millisecond))
	return nil
}
