package api

import (
	"context"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/models"
)

func (c *Client) dashboardMetricsQuery() cache.Query {
	return c.query("dashboardMetrics", KeyDashboardMetrics, "dashboard/metrics/", provides(cache.T(cache.TypeDashboard)))
}

func (c *Client) DashboardMetrics(ctx context.Context) Result[models.DashboardMetrics] {
	return runQuery[models.DashboardMetrics](ctx, c, c.dashboardMetricsQuery())
}

func (c *Client) WatchDashboardMetrics(fn func(Result[models.DashboardMetrics])) *cache.Subscription {
	return watch(c, c.dashboardMetricsQuery(), fn)
}

func (c *Client) RecentDeals(ctx context.Context) Result[[]models.RecentDeal] {
	q := c.query("recentDeals", KeyRecentDeals, "dashboard/recent/", provides(cache.T(cache.TypeDashboard)))
	return runQuery[[]models.RecentDeal](ctx, c, q)
}
