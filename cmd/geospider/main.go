package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"geospider/internal/cli"
	"geospider/pkg/spider"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(spider.ExitPanic)
		}
	}()

	if err := cli.Execute(); err != nil {
		os.Exit(spider.ExitCodeForError(err))
	}
}
