// Command tempmail creates disposable mailboxes and polls them from the
// terminal.
//
// Usage:
//
//	tempmail providers [--json]
//	tempmail create [--provider ID] [--domain D] [--json]
//	tempmail poll --provider ID --email ADDR [--token T] [--interval 5s]
//	tempmail demo [--provider ID]
//
// Settings are read from TEMPMAIL_* variables and a .env file; flags win.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], DefaultIO()); err != nil {
		fmt.Fprintf(os.Stderr, "tempmail: %v\n", err)
		os.Exit(1)
	}
}
