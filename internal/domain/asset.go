// Package domain holds the values that flow through a tokenization run:
// what the caller describes, what gets issued on the ledger and what is
// returned to the caller.
package domain

import (
	"github.com/shopspring/decimal"
)

// AssetCategory classifies the real-world asset behind a token.
type AssetCategory string

const (
	AssetCategoryRealEstate    AssetCategory = "real_estate"
	AssetCategoryCommodity     AssetCategory = "commodity"
	AssetCategoryPreciousMetal AssetCategory = "precious_metal"
	AssetCategoryArt           AssetCategory = "art"
	AssetCategoryCollectible   AssetCategory = "collectible"
	AssetCategoryEquity        AssetCategory = "equity"
	AssetCategoryDebt          AssetCategory = "debt"
	AssetCategoryOther         AssetCategory = "other"
)

// AssetCategories lists every accepted category.
var AssetCategories = []AssetCategory{
	AssetCategoryRealEstate,
	AssetCategoryCommodity,
	AssetCategoryPreciousMetal,
	AssetCategoryArt,
	AssetCategoryCollectible,
	AssetCategoryEquity,
	AssetCategoryDebt,
	AssetCategoryOther,
}

// Valid reports whether c is a known category.
func (c AssetCategory) Valid() bool {
	for _, known := range AssetCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Valuation is the appraised value of an asset.
type Valuation struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"method,omitempty"`
	Date     string          `json:"date,omitempty"`
}

// AssetDescriptor is the caller-supplied description of a real-world asset.
// It is treated as immutable once handed to the ledger builder: the copy
// embedded on the ledger can never be edited after issuance.
type AssetDescriptor struct {
	Name            string            `json:"name"`
	Category        AssetCategory     `json:"category"`
	Description     string            `json:"description,omitempty"`
	Location        string            `json:"location,omitempty"`
	Custodian       string            `json:"custodian,omitempty"`
	Jurisdiction    string            `json:"jurisdiction,omitempty"`
	Currency        string            `json:"currency"`
	FaceValue       decimal.Decimal   `json:"face_value"`
	IssueDate       string            `json:"issue_date,omitempty"`
	Valuation       Valuation         `json:"valuation"`
	LegalReferences []string          `json:"legal_references,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
}
