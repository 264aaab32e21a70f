package models

import "time"

// RiskScore is the backend's coarse risk bucket.
type RiskScore string

const (
	RiskLow     RiskScore = "Low"
	RiskMedium  RiskScore = "Medium"
	RiskHigh    RiskScore = "High"
	RiskUnknown RiskScore = "Unknown"
)

// AnalysisResult is the backend's underwriting output for one Deal. IRR is nil
// when it could not be computed.
type AnalysisResult struct {
	ID              int64      `json:"id"`
	Deal            int64      `json:"deal"`
	CapRate         float64    `json:"cap_rate"`
	CashOnCash      float64    `json:"cash_on_cash"`
	IRR             *float64   `json:"irr"`
	PassStatus      bool       `json:"pass_status"`
	Recommendations []string   `json:"recommendations"`
	RiskScore       *RiskScore `json:"risk_score,omitempty"`
	RiskFlags       []string   `json:"risk_flags,omitempty"`
	RiskExplanation *string    `json:"risk_explanation,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Verdict is the Pass/Fail badge text.
func (a AnalysisResult) Verdict() string {
	if a.PassStatus {
		return "PASS"
	}
	return "FAIL"
}

type Recommendations struct {
	Recommendations []string `json:"recommendations"`
}
