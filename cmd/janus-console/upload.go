package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bluelx/janus-console/pkg/engine"
)

func runUploadCommand(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to janus-console.yaml")
	file := fs.String("file", "", "local file to upload (required, max 5MB)")
	name := fs.String("name", "", "remote file name (default: base name of -file)")
	timeout := fs.Duration("timeout", 2*time.Minute, "upload deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	client := engine.New(cfg.Remote, cfg.Logging.Dir)
	defer client.Close()

	fileName := *name
	if fileName == "" {
		fileName = filepath.Base(*file)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	resp, err := client.UploadFile(ctx, *file, fileName)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("gateway rejected upload (%s): %s", resp.Code, resp.Message)
	}

	fmt.Printf("uploaded %s as %s\n", *file, fileName)
	if len(resp.Content) > 0 {
		fmt.Printf("storage handle: %s\n", resp.Content)
	}
	return nil
}
