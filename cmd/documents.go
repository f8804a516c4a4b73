package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/b13-niass/esign/client"
	"github.com/b13-niass/esign/pkg/clierr"
	"github.com/b13-niass/esign/pkg/hasher"
	"github.com/b13-niass/esign/pkg/pool"
	"github.com/spf13/cobra"
)

func documentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "documents",
		Aliases:     []string{"docs"},
		Short:       "List and download signed documents",
		Annotations: requiresAuth(),
	}
	cmd.AddCommand(documentsListCmd(a), documentsDownloadCmd(a))
	return cmd
}

func documentsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [demandeID]",
		Short: "List the signed documents of a demande",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := a.api.SignedDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				cmd.Println("No signed documents yet.")
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "ID", "Nom", "Type", "Cloud")
			for _, d := range docs {
				table.Append([]string{d.ID.String(), d.Nom, d.ContentType, yesNo(d.IsCloudDocument)})
			}
			table.Render()
			return nil
		},
	}
}

type download struct {
	doc  client.Document
	name string
}

type savedDocument struct {
	path string
	size int64
	sum  string
}

// documentsDownloadCmd saves every signed document of a demande, each under
// a distinct file name. Progress bars are shown only when downloads run one
// at a time.
func documentsDownloadCmd(a *app) *cobra.Command {
	var dir, algo string
	cmd := &cobra.Command{
		Use:   "download [demandeID]",
		Short: "Download the signed documents of a demande",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasher.IsValidHashAlgo(algo) {
				return clierr.New(clierr.Validation, fmt.Sprintf("unsupported hash algorithm: %s", algo), nil)
			}
			if dir == "" {
				dir = a.cfg.Download.Dir
			}
			docs, err := a.api.SignedDocuments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				cmd.Println("No signed documents yet.")
				return nil
			}

			var progress io.Writer
			if len(docs) == 1 || a.workers() == 1 {
				progress = cmd.ErrOrStderr()
			}
			downloads := make([]download, len(docs))
			for i, name := range client.FileNames(docs) {
				downloads[i] = download{doc: docs[i], name: name}
			}
			results := pool.Map(cmd.Context(), downloads, a.workers(), func(ctx context.Context, d download) (savedDocument, error) {
				path, err := a.api.DownloadDocumentAs(ctx, d.doc, dir, d.name, progress)
				if err != nil {
					return savedDocument{}, err
				}
				return describeFile(path, algo)
			})

			var failed int
			for _, r := range results {
				if r.Err != nil {
					failed++
					cmd.Printf("%s: failed: %v\n", r.Item.doc.Nom, describe(r.Err))
					continue
				}
				cmd.Printf("%s (%s) %s:%s\n", r.Value.path, formatBytes(r.Value.size), strings.ToLower(algo), r.Value.sum)
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents could not be downloaded", failed, len(docs))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "o", "", "Directory to save the documents in (default from config download.dir)")
	cmd.Flags().StringVar(&algo, "algo", hasher.DefaultAlgo, fmt.Sprintf("Checksum printed for each document %v", hasher.HashAlgorithms))
	return cmd
}

func describeFile(path, algo string) (savedDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return savedDocument{}, err
	}
	sum, err := hasher.GenerateHash(path, algo)
	if err != nil {
		return savedDocument{}, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return savedDocument{path: path, size: info.Size(), sum: sum}, nil
}
