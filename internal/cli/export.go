package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"deal-analyzer-client/internal/models"
)

func newExportCmd(app func() *App) *cobra.Command {
	var (
		kind   string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export <dealID>",
		Short: "Generate and download a PDF, Excel or LOI export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withID(app, "export", func(ctx context.Context, a *App, id int64) error {
				artifact, err := a.Client.Export(ctx, id, models.ExportKind(kind)).Unwrap()
				if err != nil {
					return err
				}
				name := artifact.FileName()
				if name == "" {
					name = fmt.Sprintf("deal-%d-%s", id, kind)
				}
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				path := filepath.Join(outDir, name)
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				if _, err := a.Client.DownloadExport(ctx, artifact, f).Unwrap(); err != nil {
					f.Close()
					_ = os.Remove(path)
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				a.println(fmt.Sprintf("Saved %s", path))
				return nil
			})(cmd, args)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(models.ExportPDF), "Export kind (pdf, excel, loi)")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}
