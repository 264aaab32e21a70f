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

// UploadDocument sends one file as multipart form fields file and doc_type.
func (c *Client) UploadDocument(ctx context.Context, dealID int64, kind models.DocumentKind, fileName string, r io.Reader) Result[models.Document] {
	if err := requireID("uploadDocument", dealID); err != nil {
		return failure[models.Document](err)
	}
	if !kind.Valid() {
		return failure[models.Document](errors.NewValidationError(map[string]string{
			"doc_type": fmt.Sprintf("Unknown document type %q", kind),
		}))
	}
	if r == nil || fileName == "" {
		return failure[models.Document](errors.NewValidationError(map[string]string{
			"file": "File is required",
		}))
	}
	return runMutation[models.Document](ctx, c, http.Request{
		Operation: "uploadDocument",
		Method:    "POST",
		Path:      fmt.Sprintf("deals/%d/documents/", dealID),
		Upload: &http.Upload{
			Field:    "file",
			FileName: fileName,
			Reader:   r,
			Form:     map[string]string{"doc_type": string(kind)},
		},
	}, cache.T(cache.TypeDocument), cache.ID(cache.TypeDocument, dealID))
}

func (c *Client) dealDocumentsQuery(dealID int64) cache.Query {
	return c.query("listDealDocuments", KeyDealDocuments(dealID), fmt.Sprintf("deals/%d/documents/", dealID),
		provides(cache.ID(cache.TypeDocument, dealID)))
}

func (c *Client) ListDealDocuments(ctx context.Context, dealID int64) Result[[]models.Document] {
	if err := requireID("listDealDocuments", dealID); err != nil {
		return failure[[]models.Document](err)
	}
	return runQuery[[]models.Document](ctx, c, c.dealDocumentsQuery(dealID))
}

func (c *Client) WatchDealDocuments(dealID int64, fn func(Result[[]models.Document])) *cache.Subscription {
	return watch(c, c.dealDocumentsQuery(dealID), fn)
}

func (c *Client) GetDocument(ctx context.Context, docID int64) Result[models.Document] {
	if err := requireID("getDocument", docID); err != nil {
		return failure[models.Document](err)
	}
	q := c.query("getDocument", KeyGetDocument(docID), fmt.Sprintf("documents/%d/", docID), provides(cache.T(cache.TypeDocument)))
	return runQuery[models.Document](ctx, c, q)
}

func (c *Client) DeleteDocument(ctx context.Context, docID int64) Result[struct{}] {
	if err := requireID("deleteDocument", docID); err != nil {
		return failure[struct{}](err)
	}
	return runMutation[struct{}](ctx, c, http.Request{
		Operation: "deleteDocument",
		Method:    "DELETE",
		Path:      fmt.Sprintf("documents/%d/delete/", docID),
	}, cache.T(cache.TypeDocument))
}
