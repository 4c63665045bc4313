package models

import "github.com/shopspring/decimal"

// DefaultPortfolioName names the portfolio issuances are credited to.
const DefaultPortfolioName = "Default"

// Portfolio groups a user's token holdings.
type Portfolio struct {
	Base
	UserID    string `gorm:"not null;uniqueIndex:idx_portfolio_user_name" json:"user_id"`
	Name      string `gorm:"not null;uniqueIndex:idx_portfolio_user_name" json:"name"`
	IsDefault bool   `gorm:"not null;default:false" json:"is_default"`

	Entries []PortfolioEntry `gorm:"foreignKey:PortfolioID" json:"entries,omitempty"`
}

// PortfolioEntry is one token holding. A token is credited to one
// portfolio entry when it is issued.
type PortfolioEntry struct {
	Base
	PortfolioID      string          `gorm:"type:uuid;not null;index" json:"portfolio_id"`
	TokenID          string          `gorm:"type:uuid;not null;uniqueIndex" json:"token_id"`
	Symbol           string          `gorm:"not null" json:"symbol"`
	Quantity         uint64          `gorm:"type:bigint;not null" json:"quantity"`
	AcquisitionValue decimal.Decimal `gorm:"type:numeric(38,18)" json:"acquisition_value"`
	Currency         string          `gorm:"size:3" json:"currency"`
}
