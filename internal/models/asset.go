package models

import "github.com/shopspring/decimal"

// Asset is the off-ledger record of a tokenized real-world asset.
type Asset struct {
	Base
	OperationID       string          `gorm:"type:uuid;uniqueIndex;not null" json:"operation_id"`
	OwnerID           string          `gorm:"not null;index" json:"owner_id"`
	Name              string          `gorm:"not null;size:200" json:"name"`
	Category          string          `gorm:"not null;index" json:"category"`
	Description       string          `json:"description,omitempty"`
	Location          string          `json:"location,omitempty"`
	Custodian         string          `json:"custodian,omitempty"`
	Jurisdiction      string          `json:"jurisdiction,omitempty"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	FaceValue         decimal.Decimal `gorm:"type:numeric(38,18)" json:"face_value"`
	IssueDate         string          `json:"issue_date,omitempty"`
	ValuationAmount   decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"valuation_amount"`
	ValuationCurrency string          `gorm:"size:3" json:"valuation_currency"`
	ValuationMethod   string          `json:"valuation_method,omitempty"`
	ValuationDate     string          `json:"valuation_date,omitempty"`
	LegalReferences   StringList      `gorm:"type:text" json:"legal_references"`
	Attributes        StringMap       `gorm:"type:text" json:"attributes"`
	MetadataHex       string          `gorm:"type:text" json:"metadata_hex"`
}
