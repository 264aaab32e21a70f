package models

import "time"

// DocumentKind is the financial document class attached to a Deal.
type DocumentKind string

const (
	DocT12      DocumentKind = "t12"
	DocRentRoll DocumentKind = "rent_roll"
)

// DocumentKinds lists the kinds the wizard requires before analysis.
var DocumentKinds = []DocumentKind{DocT12, DocRentRoll}

func (k DocumentKind) Valid() bool {
	return k == DocT12 || k == DocRentRoll
}

// Label is the human name used in notifications.
func (k DocumentKind) Label() string {
	switch k {
	case DocT12:
		return "T12"
	case DocRentRoll:
		return "Rent Roll"
	default:
		return string(k)
	}
}

type Document struct {
	ID         int64                  `json:"id"`
	Deal       int64                  `json:"deal"`
	File       string                 `json:"file"`
	DocType    DocumentKind           `json:"doc_type"`
	UploadedAt time.Time              `json:"uploaded_at"`
	ParsedData map[string]interface{} `json:"parsed_data,omitempty"`
}
