package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"medicare-pro/internal/cli"
	"medicare-pro/internal/session"
)

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(cli.ExitError)
	}

	client, err := session.New(cfg.APIURL, session.NewFileStore(cfg.SessionFile), session.WithTimeout(cfg.Timeout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "client: %v\n", err)
		os.Exit(cli.ExitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.NewApp(client, os.Stdin, os.Stdout, os.Stderr).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
