package api

import (
	"context"
	"fmt"
	"io"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/errors"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/models"
)

// Export generates a fresh rendition on every call, so it bypasses the cache.
func (c *Client) Export(ctx context.Context, dealID int64, kind models.ExportKind) Result[models.ExportArtifact] {
	if err := requireID("export", dealID); err != nil {
		return failure[models.ExportArtifact](err)
	}
	if !kind.Valid() {
		return failure[models.ExportArtifact](errors.NewValidationError(map[string]string{
			"export_type": fmt.Sprintf("Unknown export type %q", kind),
		}))
	}
	return runMutation[models.ExportArtifact](ctx, c, http.Request{
		Operation: "export_" + string(kind),
		Method:    "GET",
		Path:      fmt.Sprintf("deals/%d/export/%s/", dealID, kind),
	}, cache.T(cache.TypeExport), cache.ID(cache.TypeExport, dealID))
}

func (c *Client) ListDealExports(ctx context.Context, dealID int64) Result[[]models.ExportArtifact] {
	if err := requireID("listDealExports", dealID); err != nil {
		return failure[[]models.ExportArtifact](err)
	}
	q := c.query("listDealExports", KeyDealExports(dealID), fmt.Sprintf("deals/%d/exports/", dealID),
		provides(cache.ID(cache.TypeExport, dealID)))
	return runQuery[[]models.ExportArtifact](ctx, c, q)
}

// DownloadExport writes the artifact to w and returns its file name.
func (c *Client) DownloadExport(ctx context.Context, artifact models.ExportArtifact, w io.Writer) Result[string] {
	if artifact.URL() == "" {
		return failure[string](errors.NewPreconditionError("Export has no file URL"))
	}
	if err := c.transport.Download(ctx, artifact.URL(), w); err != nil {
		return failure[string](err)
	}
	return success(artifact.FileName())
}
