// Command todoctl is a command line front end for the todo API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, os.Args[1:], os.Stdout); err != nil {
		if ctx.Err() != nil {
			log.Warn("interrupted")
			os.Exit(130)
		}
		log.Error(err)
		os.Exit(1)
	}
}
