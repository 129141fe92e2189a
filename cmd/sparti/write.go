package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sparti"
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/git"
	"github.com/aretw0/sparti/pkg/schema"
)

var (
	writeFile    string
	writePatch   string
	writeFlavor  string
	changeReason string
	writeType    string
	writeScope   string
)

var writeCmd = &cobra.Command{
	Use:   "write [id]",
	Short: "Write a document",
	Long: `Replace a document with the fields read from --file (JSON or YAML, "-" for
stdin), or merge a JSON patch into it with --patch. In a patch, null removes
a field:

  sparti write home/hero --patch '{"title": "Grow faster", "badge": null}'`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]
		if (writeFile == "") == (writePatch == "") {
			fatal("Invalid arguments", errors.New("exactly one of --file or --patch is required"))
		}

		service, ctx := openService()

		if writePatch != "" {
			var patch schema.Patch
			if err := patch.UnmarshalJSON([]byte(writePatch)); err != nil {
				fatal("Invalid patch", err)
			}
			keys := make([]string, 0, len(patch))
			for k := range patch {
				keys = append(keys, k)
			}
			ctx = core.WithChangeReason(ctx, writeMessage(id, git.DescribeFields(keys)))
			if _, err := service.GetDocument(ctx, id); errors.Is(err, core.ErrNotFound) {
				if _, err := service.CreateDocument(ctx, id, writeFlavor); err != nil {
					fatal("Failed to create document", err)
				}
			}
			doc, err := service.Update(ctx, id, patch)
			if err != nil {
				fatal("Failed to update document", err)
			}
			fmt.Printf("Document '%s' updated: %s.\n", doc.ID, git.DescribeFields(keys))
			return
		}

		ctx = core.WithChangeReason(ctx, writeMessage(id, "replace fields"))
		fields, err := readFields(writeFile)
		if err != nil {
			fatal("Failed to read fields", err)
		}
		flavor := writeFlavor
		if flavor == "" {
			if existing, err := service.GetDocument(ctx, id); err == nil {
				flavor = existing.Flavor
			}
		}
		if err := service.SaveDocument(ctx, core.Document{ID: id, Flavor: flavor, Fields: fields}); err != nil {
			fatal("Failed to save document", err)
		}
		fmt.Printf("Document '%s' saved.\n", id)
	},
}

func writeMessage(id, what string) string {
	if writeType != "" {
		subject := changeReason
		if subject == "" {
			subject = id + ": " + what
		}
		return sparti.FormatChangeReason(writeType, writeScope, subject, "")
	}
	if changeReason != "" {
		return git.AppendFooter(changeReason)
	}
	return sparti.FormatChangeReason(sparti.ChangeDocs, tenant, id+": "+what, "")
}

// readFields parses a JSON or YAML document. YAML is picked by extension.
func readFields(path string) (schema.Document, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var doc schema.Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			doc = schema.Document{}
		}
		return doc, nil
	}
	return schema.ParseJSON(data)
}

func init() {
	rootCmd.AddCommand(writeCmd)
	writeCmd.Flags().StringVar(&writeFile, "file", "", "Fields file (JSON or YAML, - for stdin)")
	writeCmd.Flags().StringVar(&writePatch, "patch", "", "JSON merge patch")
	writeCmd.Flags().StringVar(&writeFlavor, "flavor", "", "Component of the document")
	writeCmd.Flags().StringVarP(&changeReason, "message", "m", "", "Change reason (audit note)")
	writeCmd.Flags().StringVarP(&writeType, "type", "t", "", "Change type (feat, fix, docs, chore)")
	writeCmd.Flags().StringVarP(&writeScope, "scope", "s", "", "Change scope")
}
