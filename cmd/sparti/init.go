package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Initialize a store",
	Long: `Initialize a new store in dir (default: the working directory). Filesystem
stores get a .sparti system directory and, unless --no-versioning, a git repository.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 1 {
			storeDir = args[0]
		}
		uri, err := storeURI()
		if err != nil {
			fatal("Failed to locate store", err)
		}
		if storeDir == "" && adapter != sparti.AdapterHTTP {
			// Never inherit a parent store on init.
			uri = "."
		}

		if _, err := sparti.Init(uri, storeOptions(sparti.WithAutoInit(true))...); err != nil {
			fatal("Failed to initialize store", err)
		}
		fmt.Println("Initialized empty Sparti store in", uri)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
