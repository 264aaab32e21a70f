package models

type DashboardMetrics struct {
	TotalDeals     int     `json:"total_deals"`
	AverageCapRate float64 `json:"average_cap_rate"`
	PassCount      int     `json:"pass_count"`
	FailCount      int     `json:"fail_count"`
}

type RecentDeal struct {
	DealID     int64   `json:"deal_id"`
	Address    string  `json:"address"`
	CapRate    float64 `json:"cap_rate"`
	PassStatus bool    `json:"pass_status"`
	AnalyzedOn string  `json:"analyzed_on"`
}
