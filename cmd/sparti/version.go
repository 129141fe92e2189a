package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of sparti",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sparti version %s\n", sparti.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
