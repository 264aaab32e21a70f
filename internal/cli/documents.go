package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/models"
	"deal-analyzer-client/internal/sheets"
)

func newDocumentsCmd(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage the T12 and rent roll attached to a deal",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <dealID>",
			Short: "List the documents of a deal",
			Args:  cobra.ExactArgs(1),
			RunE: withID(app, "listDealDocuments", func(ctx context.Context, a *App, id int64) error {
				docs, err := a.Client.ListDealDocuments(ctx, id).Unwrap()
				if err != nil {
					return err
				}
				if len(docs) == 0 {
					a.println("No documents uploaded.")
					return nil
				}
				for _, d := range docs {
					a.println(fmt.Sprintf("%-6d %-10s %s", d.ID, d.DocType.Label(), d.File))
				}
				return nil
			}),
		},
		newUploadCmd(app),
		&cobra.Command{
			Use:   "delete <docID>",
			Short: "Delete a document",
			Args:  cobra.ExactArgs(1),
			RunE: withID(app, "deleteDocument", func(ctx context.Context, a *App, id int64) error {
				if _, err := a.Client.DeleteDocument(ctx, id).Unwrap(); err != nil {
					return err
				}
				a.println(fmt.Sprintf("Document #%d deleted", id))
				return nil
			}),
		},
	)
	return cmd
}

func newUploadCmd(app func() *App) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "upload <dealID> <file>",
		Short: "Upload a T12 or rent roll",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[1]
			return withID(app, "uploadDocument", func(ctx context.Context, a *App, id int64) error {
				content, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				k := models.DocumentKind(strings.ReplaceAll(kind, "-", "_"))
				if _, err := sheets.Inspect(string(k), path, content); err != nil {
					return err
				}
				doc, err := a.Client.UploadDocument(ctx, id, k, filepath.Base(path), bytes.NewReader(content)).Unwrap()
				if err != nil {
					return err
				}
				a.println(fmt.Sprintf("%s saved successfully (document #%d)", k.Label(), doc.ID))
				return nil
			})(cmd, args[:1])
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(models.DocT12), "Document kind (t12, rent_roll)")
	return cmd
}
