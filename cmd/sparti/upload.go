package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/sparti"
	"github.com/aretw0/sparti/pkg/core"
)

var (
	uploadParallel int
	uploadInto     string
	uploadField    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload files and print their public URLs",
	Long: `Upload files to the configured upload service. With --into and --field a
single file is uploaded and its URL stored in that document field; the field
is left unchanged when the upload fails.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		service, ctx := openService()

		if uploadInto != "" || uploadField != "" {
			if uploadInto == "" || uploadField == "" {
				fatal("Invalid flags", fmt.Errorf("--into and --field must be used together"))
			}
			if len(args) != 1 {
				fatal("Invalid arguments", fmt.Errorf("exactly one file can be uploaded into a field"))
			}
			uploadIntoField(ctx, service, args[0])
			return
		}

		urls := make([]string, len(args))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(uploadParallel)
		for i, name := range args {
			g.Go(func() error {
				url, err := uploadFile(gctx, service, name)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				urls[i] = url
				return nil
			})
		}
		err := g.Wait()
		for i, name := range args {
			if urls[i] != "" {
				fmt.Printf("%s -> %s\n", name, urls[i])
			}
		}
		if err != nil {
			fatal("Upload failed", err)
		}
	},
}

func uploadFile(ctx context.Context, service *core.Service, name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return service.Upload(ctx, filepath.Base(name), f)
}

func uploadIntoField(ctx context.Context, service *core.Service, name string) {
	sess, err := service.Edit(ctx, uploadInto)
	if err != nil {
		fatal("Failed to open document", err)
	}
	defer sess.Close()

	f, err := os.Open(name)
	if err != nil {
		fatal("Failed to open file", err)
	}
	defer f.Close()

	path := strings.Split(uploadField, ".")
	url, err := sess.UploadInto(ctx, service, path, filepath.Base(name), f)
	if err != nil {
		fatal("Upload failed, field unchanged", err)
	}

	reason := sparti.FormatChangeReason(sparti.ChangeChore, tenant, fmt.Sprintf("%s: upload %s", uploadInto, uploadField), "")
	if _, err := service.Commit(core.WithChangeReason(ctx, reason), uploadInto, sess); err != nil {
		fatal("Failed to save document", err)
	}
	fmt.Printf("%s.%s = %s\n", uploadInto, uploadField, url)
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().IntVarP(&uploadParallel, "parallel", "p", 4, "Maximum concurrent uploads")
	uploadCmd.Flags().StringVar(&uploadInto, "into", "", "Document to store the URL in")
	uploadCmd.Flags().StringVar(&uploadField, "field", "", "Dotted path of the field that receives the URL")
}
