// Command stategraph runs the tutorial workflows on a checkpoint store.
//
//	stategraph workflows
//	stategraph graph support
//	stategraph --store sqlite --dsn ./sg.db run terraform --input '{"inst":"s3 bucket"}' --thread t1
//	stategraph --store sqlite --dsn ./sg.db resume terraform --thread t1 --value true
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

	if err := Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
