package api

import (
	"context"
	"fmt"

	"deal-analyzer-client/internal/cache"
	"deal-analyzer-client/internal/common/http"
	"deal-analyzer-client/internal/models"
)

// AnalyzeDeal runs the backend underwriting for a deal. The result replaces any
// previous analysis of that deal.
func (c *Client) AnalyzeDeal(ctx context.Context, dealID int64) Result[models.AnalysisResult] {
	if err := requireID("analyzeDeal", dealID); err != nil {
		return failure[models.AnalysisResult](err)
	}
	return runMutation[models.AnalysisResult](ctx, c, http.Request{
		Operation: "analyzeDeal",
		Method:    "POST",
		Path:      fmt.Sprintf("deals/%d/analyze/", dealID),
	},
		cache.T(cache.TypeAnalysis), cache.ID(cache.TypeAnalysis, dealID),
		cache.T(cache.TypeDeal), cache.ID(cache.TypeDeal, dealID),
		cache.T(cache.TypeDeals), cache.T(cache.TypeDashboard),
	)
}

func (c *Client) analysisQuery(dealID int64) cache.Query {
	return c.query("getAnalysis", KeyGetAnalysis(dealID), fmt.Sprintf("deals/%d/analysis/", dealID),
		provides(cache.ID(cache.TypeAnalysis, dealID)))
}

func (c *Client) GetAnalysis(ctx context.Context, dealID int64) Result[models.AnalysisResult] {
	if err := requireID("getAnalysis", dealID); err != nil {
		return failure[models.AnalysisResult](err)
	}
	return runQuery[models.AnalysisResult](ctx, c, c.analysisQuery(dealID))
}

func (c *Client) WatchAnalysis(dealID int64, fn func(Result[models.AnalysisResult])) *cache.Subscription {
	return watch(c, c.analysisQuery(dealID), fn)
}

func (c *Client) GetRecommendations(ctx context.Context, dealID int64) Result[models.Recommendations] {
	if err := requireID("getRecommendations", dealID); err != nil {
		return failure[models.Recommendations](err)
	}
	q := c.query("getRecommendations", KeyGetRecommendations(dealID), fmt.Sprintf("deals/%d/recommendations/", dealID),
		provides(cache.ID(cache.TypeAnalysis, dealID)))
	return runQuery[models.Recommendations](ctx, c, q)
}
