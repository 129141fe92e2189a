package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		if !deleteYes && !confirm(fmt.Sprintf("Delete %s/%s?", tenant, id)) {
			fmt.Println("Aborted.")
			return
		}

		service, ctx := openService()
		if err := service.DeleteDocument(ctx, id); err != nil {
			fatal("Failed to delete document", err)
		}
		fmt.Printf("Document deleted: %s\n", id)
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}
