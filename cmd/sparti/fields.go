package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var fieldsJSON bool

var fieldsCmd = &cobra.Command{
	Use:   "fields [id]",
	Short: "Describe the top-level fields of a document",
	Long: `List every top-level field with its inferred kind and widget. Reserved
fields of the component come first, custom fields follow.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, ctx := openService()
		sess, err := service.Edit(ctx, args[0])
		if err != nil {
			fatal("Failed to open document", err)
		}
		defer sess.Close()

		fields := sess.Fields()
		if fieldsJSON {
			encoder := gojson.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(fields); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tLABEL\tKIND\tWIDGET\tRESERVED")
		for _, f := range fields {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n", f.Key, f.Label, f.Kind, f.Widget, f.Known)
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().BoolVar(&fieldsJSON, "json", false, "Output in JSON format")
}
