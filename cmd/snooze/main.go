// Command snooze drives a Phabricator dashboard in Chrome and hides the items
// you snoozed until their wake-up date.
//
// Usage:
//
//	snooze run -config snooze.yaml            # drive the dashboard
//	snooze list -store sqlite -store-path s.db
//	snooze export -o backup.json
//	snooze import backup.json
//	snooze render saved.html -o decorated.html
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRoot().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "snooze:", err)
		os.Exit(1)
	}
}
