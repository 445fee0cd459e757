package main

import (
	"context"
	"fmt"
	"os"

	"github.com/de-tools/site-report/pkg/runtime/app"
	"github.com/de-tools/site-report/pkg/runtime/terminal"
	"github.com/de-tools/site-report/pkg/services/config"
)

func main() {
	cli := terminal.NewCLI(terminal.Options{
		Open:   open,
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func open(ctx context.Context, configPath string) (*terminal.Backend, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}
	return &terminal.Backend{
		Reports:    a.Reports,
		Complaints: a.Complaints,
		Delivery:   a.Delivery,
		Close:      a.Close,
	}, nil
}
