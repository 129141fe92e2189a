package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize a versioned store with its git remote",
	Long: `Synchronize the local store with the configured git remote.
It integrates remote changes and pushes local changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		uri, err := storeURI()
		if err != nil {
			fatal("Failed to locate store", err)
		}

		fmt.Println("Syncing...")
		if err := sparti.Sync(uri, storeOptions()...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Sync failed: %v\n", err)
			fmt.Println("Tip: Ensure you have a remote configured ('git remote add origin <url>') and you are online.")
			os.Exit(1)
		}
		fmt.Println("Sync completed successfully.")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
