package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/sparti"
	"github.com/aretw0/sparti/pkg/core"
)

var (
	verbose     bool
	storeDir    string
	adapter     string
	tenant      string
	remoteURL   string
	nover       bool
	format      string
	strict      bool
	readOnly    bool
	catalogFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sparti",
	Short: "Edit the schema documents behind landing page sections",
	Long: `Sparti stores every page section of a tenant as a schema document
(a nested JSON object) and edits it field by field without losing drafts
to concurrent updates.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&storeDir, "dir", "C", "", "Store root (default: nearest .sparti above the working directory)")
	flags.StringVar(&adapter, "adapter", sparti.AdapterFS, "Storage adapter: fs, sqlite or http")
	flags.StringVarP(&tenant, "tenant", "T", core.DefaultTenant, "Tenant that owns the documents")
	flags.StringVar(&remoteURL, "remote", os.Getenv("SPARTI_REMOTE"), "Base URL of the document API and upload service")
	flags.BoolVar(&nover, "no-versioning", false, "Do not version saves with git")
	flags.StringVar(&format, "format", "json", "Format of new documents on disk: json or yaml")
	flags.BoolVar(&strict, "strict", false, "Reject files that are not a {flavor, fields} envelope")
	flags.BoolVar(&readOnly, "read-only", false, "Refuse every write")
	flags.StringVar(&catalogFile, "catalog", "", "YAML file with extra components")
}

// storeURI resolves where the store lives for the selected adapter.
func storeURI() (string, error) {
	if adapter == sparti.AdapterHTTP {
		if remoteURL == "" {
			return "", fmt.Errorf("--remote is required for the http adapter")
		}
		return remoteURL, nil
	}
	if storeDir != "" {
		return storeDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	if root, err := sparti.FindStoreRoot(wd); err == nil {
		return root, nil
	}
	return wd, nil
}

// storeOptions maps the persistent flags onto facade options.
func storeOptions(extra ...sparti.Option) []sparti.Option {
	opts := []sparti.Option{
		sparti.WithAdapter(adapter),
		sparti.WithLogger(slog.Default()),
		sparti.WithTenant(tenant),
		sparti.WithFormat(format),
		sparti.WithStrict(strict),
		sparti.WithReadOnly(readOnly),
	}
	if nover {
		opts = append(opts, sparti.WithVersioning(false))
	}
	if remoteURL != "" {
		opts = append(opts, sparti.WithRemote(remoteURL))
	}
	if catalogFile != "" {
		opts = append(opts, sparti.WithCatalogFile(catalogFile))
	}
	return append(opts, extra...)
}

// openService opens the store and returns the service with a context scoped
// to the selected tenant.
func openService(extra ...sparti.Option) (*core.Service, context.Context) {
	uri, err := storeURI()
	if err != nil {
		fatal("Failed to locate store", err)
	}
	service, err := sparti.New(uri, storeOptions(append([]sparti.Option{sparti.WithMustExist(true)}, extra...)...)...)
	if err != nil {
		fatal("Failed to open store", err)
	}
	return service, core.WithTenant(context.Background(), tenant)
}
