package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	lifecycleadapter "github.com/aretw0/sparti/pkg/adapters/lifecycle"
	"github.com/aretw0/sparti/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Print document changes as they happen",
	Long: `Watch the store and print one line per created, modified or deleted
document whose ID matches pattern (doublestar syntax, default "**").
Stop with Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		service, base := openService()
		ctx, stop := signal.NotifyContext(base, os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := service.Watch(ctx, pattern)
		if err != nil {
			if errors.Is(err, core.ErrUnsupported) {
				fatal("Watch is not available", fmt.Errorf("the %s adapter does not report changes", adapter))
			}
			fatal("Failed to watch store", err)
		}

		src := lifecycleadapter.NewSource(events)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start watcher", err)
		}
		fmt.Fprintln(os.Stderr, "Watching for changes...")
		for e := range src.Events() {
			fmt.Println(e)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
