package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/git"
	"github.com/aretw0/sparti/pkg/schema"
)

var rawCmd = &cobra.Command{
	Use:   "raw [id]",
	Short: "Edit the fields of a document as JSON in your editor",
	Long: `Open the fields of a document as indented JSON in $EDITOR. Only the fields
that changed are written back; keys removed from the JSON are deleted. Text
that is not a JSON object is never saved, you can fix it or give up.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		service, ctx := openService()

		doc, err := service.GetDocument(ctx, id)
		if err != nil {
			fatal("Failed to read document", err)
		}

		raw := schema.NewRawEditor(doc.Fields)
		for {
			text, err := askEditor("Fields of "+id, raw.Text())
			if errors.Is(err, errAborted) {
				fmt.Println("Nothing saved.")
				return
			}
			if err != nil {
				fatal("Editor failed", err)
			}
			if err := raw.SetText(text); err == nil {
				break
			}
			warn(fmt.Errorf("invalid JSON: %w", raw.Err()))
			if !confirm("Edit again?") {
				fmt.Println("Nothing saved.")
				return
			}
		}

		patch := schema.Diff(doc.Fields, raw.Document())
		if len(patch) == 0 {
			fmt.Println("No changes.")
			return
		}
		keys := make([]string, 0, len(patch))
		for k := range patch {
			keys = append(keys, k)
		}
		ctx = core.WithChangeReason(ctx, writeMessage(id, git.DescribeFields(keys)))
		if _, err := service.Update(ctx, id, patch); err != nil {
			fatal("Failed to update document", err)
		}
		fmt.Printf("Document '%s' updated: %s.\n", id, git.DescribeFields(keys))
	},
}

func init() {
	rootCmd.AddCommand(rawCmd)
}
