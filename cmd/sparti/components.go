package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/sparti/pkg/registry"
)

var componentsYAML bool

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List the section components and their reserved fields",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		catalog := registry.NewDefault()
		if catalogFile != "" {
			f, err := os.Open(catalogFile)
			if err != nil {
				fatal("Failed to open catalog", err)
			}
			defer f.Close()
			if err := catalog.Load(f); err != nil {
				fatal("Failed to load catalog", err)
			}
		}

		comps := catalog.List()
		if componentsYAML {
			if err := yaml.NewEncoder(os.Stdout).Encode(map[string]any{"components": comps}); err != nil {
				fatal("Failed to encode YAML", err)
			}
			return
		}

		for _, c := range comps {
			fields := make([]string, len(c.Fields))
			for i, f := range c.Fields {
				fields[i] = fmt.Sprintf("%s:%s", f.Name, f.Kind)
			}
			fmt.Printf("%-14s %s\n", c.Name, c.Description)
			fmt.Printf("%-14s %s\n", "", strings.Join(fields, " "))
		}
	},
}

func init() {
	rootCmd.AddCommand(componentsCmd)
	componentsCmd.Flags().BoolVar(&componentsYAML, "yaml", false, "Output as a catalog file")
}
