// kamctl - Kamatera Cloud Server Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kamctl

// Command kamctl manages Kamatera servers from the terminal.
//
//	kamctl list
//	kamctl details <server_id> --json
//	kamctl reboot <server_id> -y
//
// Credentials come from KAMATERA_API_KEY, or KAMATERA_CLIENT_ID and
// KAMATERA_SECRET, through the same configuration layer as the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/tomtom215/kamctl/internal/cli"
	"github.com/tomtom215/kamctl/internal/config"
	"github.com/tomtom215/kamctl/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = color.New(color.FgHiRed).Fprintf(os.Stderr, "❌ Erreur: %s\n", err)
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: "console",
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{Config: cfg}
	return app.Execute(ctx, os.Args[1:])
}
