// internal/models/deal.go
package models

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// PropertyType enumerates the property classes accepted at intake.
type PropertyType string

const (
	PropertyMultifamily PropertyType = "multifamily"
	PropertyOffice      PropertyType = "office"
	PropertyRetail      PropertyType = "retail"
	PropertyIndustrial  PropertyType = "industrial"
	PropertyMixedUse    PropertyType = "mixed-use"
)

var PropertyTypes = []PropertyType{
	PropertyMultifamily,
	PropertyOffice,
	PropertyRetail,
	PropertyIndustrial,
	PropertyMixedUse,
}

// Deal is a prospective property as returned by the backend. FetchedData is filled
// by the backend at creation time.
type Deal struct {
	ID             int64           `json:"id"`
	Address        string          `json:"address"`
	City           string          `json:"city"`
	State          string          `json:"state"`
	ZipCode        string          `json:"zip_code"`
	PropertyType   PropertyType    `json:"property_type"`
	AskingPrice    decimal.Decimal `json:"asking_price"`
	FetchedData    *FetchedData    `json:"fetched_data,omitempty"`
	User           int64           `json:"user,omitempty"`
	AnalysisResult *int64          `json:"analysis_result,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (d Deal) Key() string {
	return strconv.FormatInt(d.ID, 10)
}

// FetchedData is the property-data lookup attached to a Deal.
type FetchedData struct {
	Bedrooms  int             `json:"bedrooms,omitempty"`
	Bathrooms float64         `json:"bathrooms,omitempty"`
	Sqft      int             `json:"sqft,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Rent      decimal.Decimal `json:"rent"`
	CapRate   float64         `json:"cap_rate,omitempty"`
	YearBuilt int             `json:"year_built,omitempty"`
	Zestimate decimal.Decimal `json:"zestimate"`
}

// FetchResult is the answer of an explicit property-data re-fetch.
type FetchResult struct {
	Message     string      `json:"message"`
	FetchedData FetchedData `json:"fetched_data"`
}

// DealInput is the intake form body for create and update.
type DealInput struct {
	Address      string          `json:"address"`
	City         string          `json:"city"`
	State        string          `json:"state"`
	ZipCode      string          `json:"zip_code"`
	PropertyType PropertyType    `json:"property_type"`
	AskingPrice  decimal.Decimal `json:"asking_price"`
}

// Fields returns the form as a generic document for schema validation.
func (in DealInput) Fields() map[string]interface{} {
	doc := map[string]interface{}{
		"address":       in.Address,
		"city":          in.City,
		"state":         in.State,
		"zip_code":      in.ZipCode,
		"property_type": string(in.PropertyType),
	}
	if !in.AskingPrice.IsZero() {
		doc["asking_price"] = in.AskingPrice.InexactFloat64()
	}
	return doc
}
