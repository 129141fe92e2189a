package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti"
	"github.com/aretw0/sparti/pkg/core"
	"github.com/aretw0/sparti/pkg/schema"
)

var (
	addFieldKind string
	addFieldIn   string
)

var addFieldCmd = &cobra.Command{
	Use:   "add-field [id] [name]",
	Short: "Add a custom field to a document",
	Long: `Add a field initialized with the default value of its kind. Use --in to
add it to a nested object, addressed by dotted path (e.g. "button").`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, name := args[0], args[1]
		kind, ok := schema.ParseKind(addFieldKind)
		if !ok {
			fatal("Invalid kind", fmt.Errorf("%q is not one of string, number, boolean, array, object", addFieldKind))
		}

		service, ctx := openService()
		sess, err := service.Edit(ctx, id)
		if err != nil {
			fatal("Failed to open document", err)
		}
		defer sess.Close()

		var path []string
		if addFieldIn != "" {
			path = strings.Split(addFieldIn, ".")
		}
		obj, err := sess.Object(path...)
		if err != nil {
			fatal("Failed to open object", err)
		}
		if v := obj.Validate(name); !v.Valid {
			fatal("Invalid field name", errors.New(v.Error))
		}
		if err := obj.Add(name, kind); err != nil {
			fatal("Failed to add field", err)
		}

		ctx = core.WithChangeReason(ctx, sparti.FormatChangeReason(sparti.ChangeFeat, tenant, fmt.Sprintf("%s: add %s field %s", id, kind, name), ""))
		if _, err := service.Commit(ctx, id, sess); err != nil {
			fatal("Failed to save document", err)
		}
		fmt.Printf("Added %s field %q to %s.\n", kind, name, id)
	},
}

func init() {
	rootCmd.AddCommand(addFieldCmd)
	addFieldCmd.Flags().StringVarP(&addFieldKind, "kind", "k", string(schema.KindString), "Kind of the new field")
	addFieldCmd.Flags().StringVar(&addFieldIn, "in", "", "Dotted path of the object to add the field to")
}
