package main

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/aretw0/sparti/pkg/core"
)

var (
	listJSON   bool
	listFilter string
	listFlavor string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the documents of the tenant",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if listFilter != "" && !doublestar.ValidatePattern(listFilter) {
			fatal("Invalid filter", fmt.Errorf("bad pattern %q", listFilter))
		}

		service, ctx := openService()
		docs, err := service.ListDocuments(ctx)
		if err != nil {
			fatal("Failed to list documents", err)
		}

		filtered := make([]core.Document, 0, len(docs))
		for _, doc := range docs {
			if listFilter != "" {
				if ok, _ := doublestar.Match(listFilter, doc.ID); !ok {
					continue
				}
			}
			if listFlavor != "" && doc.Flavor != listFlavor {
				continue
			}
			filtered = append(filtered, doc)
		}

		if listJSON {
			out := make([]documentView, len(filtered))
			for i, doc := range filtered {
				out[i] = viewOf(doc)
			}
			encoder := gojson.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(out); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, doc := range filtered {
			flavor := doc.Flavor
			if flavor == "" {
				flavor = "-"
			}
			fmt.Printf("%s\t%s\t%d fields\n", doc.ID, flavor, len(doc.Fields))
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "Only IDs matching a glob (e.g. 'home/**')")
	listCmd.Flags().StringVar(&listFlavor, "flavor", "", "Only documents of a component")
}
