package api

import (
	"context"
	"fmt"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/models"
)

func (c *Client) ListFilters(ctx context.Context) Result[[]models.FilterSetting] {
	q := c.query("listFilters", KeyListFilters, "filters/", providesList(cache.T(cache.TypeFilter), cache.TypeFilter))
	return runQuery[[]models.FilterSetting](ctx, c, q)
}

func (c *Client) GetFilter(ctx context.Context, id int64) Result[models.FilterSetting] {
	if err := requireID("getFilter", id); err != nil {
		return failure[models.FilterSetting](err)
	}
	q := c.query("getFilter", KeyGetFilter(id), fmt.Sprintf("filters/%d/", id), provides(cache.ID(cache.TypeFilter, id)))
	return runQuery[models.FilterSetting](ctx, c, q)
}

func (c *Client) CreateFilter(ctx context.Context, f models.FilterSetting) Result[models.FilterSetting] {
	return runMutation[models.FilterSetting](ctx, c, http.Request{
		Operation: "createFilter",
		Method:    "POST",
		Path:      "filters/",
		Body:      f,
	}, cache.T(cache.TypeFilter))
}

func (c *Client) UpdateFilter(ctx context.Context, id int64, f models.FilterSetting) Result[models.FilterSetting] {
	if err := requireID("updateFilter", id); err != nil {
		return failure[models.FilterSetting](err)
	}
	return runMutation[models.FilterSetting](ctx, c, http.Request{
		Operation: "updateFilter",
		Method:    "PUT",
		Path:      fmt.Sprintf("filters/%d/", id),
		Body:      f,
	}, cache.T(cache.TypeFilter), cache.ID(cache.TypeFilter, id))
}

func (c *Client) DeleteFilter(ctx context.Context, id int64) Result[struct{}] {
	if err := requireID("deleteFilter", id); err != nil {
		return failure[struct{}](err)
	}
	return runMutation[struct{}](ctx, c, http.Request{
		Operation: "deleteFilter",
		Method:    "DELETE",
		Path:      fmt.Sprintf("filters/%d/", id),
	}, cache.T(cache.TypeFilter), cache.ID(cache.TypeFilter, id))
}
