/*
Package main is the entry point for the popx command line client.

It loads the client configuration, opens the local session database and hands control
to the cobra command tree.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"popx/internal/client/cli"
	"popx/internal/client/session"
	"popx/internal/client/tokenstore"
	"popx/internal/configs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configs.LoadClientConfig(nil)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := tokenstore.OpenSQLite(ctx, cfg.StateDB)
	if err != nil {
		return err
	}
	defer tokens.Close()

	app := &cli.App{
		Session: session.New(cfg.APIURL, tokens, session.WithTimeout(cfg.Timeout)),
		ErrOut:  os.Stderr,
	}

	return cli.NewRootCommand(app).ExecuteContext(ctx)
}
