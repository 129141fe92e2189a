package main

import (
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

var readYAML bool

// documentView is the printable form of a document.
type documentView struct {
	Tenant string          `json:"tenant" yaml:"tenant"`
	ID     string          `json:"id" yaml:"id"`
	Flavor string          `json:"flavor,omitempty" yaml:"flavor,omitempty"`
	Fields schema.Document `json:"fields" yaml:"fields"`
}

func viewOf(doc core.Document) documentView {
	return documentView{Tenant: doc.Tenant, ID: doc.ID, Flavor: doc.Flavor, Fields: doc.Fields}
}

var readCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Print a document",
	Long:  `Read a document by its ID (page/section). Outputs JSON by default, or YAML with --yaml.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, ctx := openService()
		doc, err := service.GetDocument(ctx, args[0])
		if err != nil {
			fatal("Failed to read document", err)
		}

		if readYAML {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(viewOf(doc)); err != nil {
				fatal("Failed to encode YAML", err)
			}
			_ = enc.Close()
			return
		}

		encoder := gojson.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(viewOf(doc)); err != nil {
			fatal("Failed to encode JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readYAML, "yaml", false, "Output in YAML format")
}
