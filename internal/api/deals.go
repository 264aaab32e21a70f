package api

import (
	"context"
	"fmt"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/models"
)

func (c *Client) listDealsQuery() cache.Query {
	return c.query("listDeals", KeyListDeals, "deals/", providesList(cache.T(cache.TypeDeals), cache.TypeDeal))
}

func (c *Client) getDealQuery(id int64) cache.Query {
	return c.query("getDeal", KeyGetDeal(id), fmt.Sprintf("deals/%d/", id), provides(cache.ID(cache.TypeDeal, id)))
}

func (c *Client) ListDeals(ctx context.Context) Result[[]models.Deal] {
	return runQuery[[]models.Deal](ctx, c, c.listDealsQuery())
}

func (c *Client) WatchDeals(fn func(Result[[]models.Deal])) *cache.Subscription {
	return watch(c, c.listDealsQuery(), fn)
}

func (c *Client) GetDeal(ctx context.Context, id int64) Result[models.Deal] {
	if err := requireID("getDeal", id); err != nil {
		return failure[models.Deal](err)
	}
	return runQuery[models.Deal](ctx, c, c.getDealQuery(id))
}

func (c *Client) WatchDeal(id int64, fn func(Result[models.Deal])) *cache.Subscription {
	return watch(c, c.getDealQuery(id), fn)
}

// CreateDeal submits the intake form. The backend fills fetched_data before
// answering.
func (c *Client) CreateDeal(ctx context.Context, in models.DealInput) Result[models.Deal] {
	return runMutation[models.Deal](ctx, c, http.Request{
		Operation: "createDeal",
		Method:    "POST",
		Path:      "deals/",
		Body:      in,
	}, cache.T(cache.TypeDeal), cache.T(cache.TypeDeals), cache.T(cache.TypeDashboard))
}

func (c *Client) UpdateDeal(ctx context.Context, id int64, in models.DealInput) Result[models.Deal] {
	if err := requireID("updateDeal", id); err != nil {
		return failure[models.Deal](err)
	}
	return runMutation[models.Deal](ctx, c, http.Request{
		Operation: "updateDeal",
		Method:    "PUT",
		Path:      fmt.Sprintf("deals/%d/", id),
		Body:      in,
	}, cache.T(cache.TypeDeal), cache.ID(cache.TypeDeal, id), cache.T(cache.TypeDeals))
}

func (c *Client) DeleteDeal(ctx context.Context, id int64) Result[struct{}] {
	if err := requireID("deleteDeal", id); err != nil {
		return failure[struct{}](err)
	}
	return runMutation[struct{}](ctx, c, http.Request{
		Operation: "deleteDeal",
		Method:    "DELETE",
		Path:      fmt.Sprintf("deals/%d/", id),
	}, cache.T(cache.TypeDeal), cache.ID(cache.TypeDeal, id), cache.T(cache.TypeDeals), cache.T(cache.TypeDashboard))
}

// FetchDealData asks the backend to re-run its property-data lookup.
func (c *Client) FetchDealData(ctx context.Context, id int64) Result[models.FetchResult] {
	if err := requireID("fetchDealData", id); err != nil {
		return failure[models.FetchResult](err)
	}
	return runMutation[models.FetchResult](ctx, c, http.Request{
		Operation: "fetchDealData",
		Method:    "POST",
		Path:      fmt.Sprintf("deals/%d/fetch-data/", id),
	}, cache.T(cache.TypeDeal), cache.ID(cache.TypeDeal, id))
}
