package domain

import "github.com/shopspring/decimal"

// BookkeepingStatus summarises the durable-store side of a tokenization.
type BookkeepingStatus string

const (
	BookkeepingComplete BookkeepingStatus = "complete"
	BookkeepingPartial  BookkeepingStatus = "partial"
	BookkeepingDegraded BookkeepingStatus = "degraded"
)

// LedgerOutcome is the on-chain half of a result. When Status is
// "validated" the token exists regardless of what bookkeeping reports.
type LedgerOutcome struct {
	Status      string                  `json:"status"`
	Transaction LedgerTransactionResult `json:"transaction"`
}

// BookkeepingOutcome is the off-chain half of a result.
type BookkeepingOutcome struct {
	Status            BookkeepingStatus `json:"status"`
	CompletedSteps    []string          `json:"completed_steps"`
	FailedSteps       []string          `json:"failed_steps,omitempty"`
	ReconciliationRef string            `json:"reconciliation_ref,omitempty"`
}

// TokenIdentity names the issued token.
type TokenIdentity struct {
	TokenID       string       `json:"token_id,omitempty"`
	AssetID       string       `json:"asset_id,omitempty"`
	Symbol        string       `json:"symbol"`
	CurrencyCode  string       `json:"currency_code,omitempty"`
	IssuanceID    string       `json:"issuance_id"`
	Issuer        string       `json:"issuer"`
	Mode          IssuanceMode `json:"mode"`
	TotalSupply   uint64       `json:"total_supply"`
	Decimals      uint8        `json:"decimals"`
	MetadataHex   string       `json:"metadata_hex,omitempty"`
	Flags         uint32       `json:"flags"`
	FlagNames     []string     `json:"flag_names,omitempty"`
	TransferFee   uint32       `json:"transfer_fee"`
	TransferRate  uint32       `json:"transfer_rate,omitempty"`
	PortfolioID   string       `json:"portfolio_id,omitempty"`
	EntryQuantity uint64       `json:"entry_quantity,omitempty"`
}

// TokenEconomics are figures derived from already-known data.
type TokenEconomics struct {
	PricePerToken     decimal.Decimal `json:"price_per_token"`
	MinimumInvestment decimal.Decimal `json:"minimum_investment"`
	TokenizationRatio decimal.Decimal `json:"tokenization_ratio"`
	MarketCap         decimal.Decimal `json:"market_cap"`
	Currency          string          `json:"currency"`
	LiquidityScore    int             `json:"liquidity_score"`
	RiskScore         int             `json:"risk_score"`
	RiskLevel         string          `json:"risk_level"`
}

// ComplianceDocument is a generated stub the issuer is expected to complete.
type ComplianceDocument struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Required bool   `json:"required"`
}

// TokenizationResult is what the caller receives from a tokenization run.
type TokenizationResult struct {
	OperationID string               `json:"operation_id"`
	Ledger      LedgerOutcome        `json:"ledger"`
	Bookkeeping BookkeepingOutcome   `json:"bookkeeping"`
	Token       TokenIdentity        `json:"token"`
	Economics   TokenEconomics       `json:"economics"`
	Documents   []ComplianceDocument `json:"compliance_documents"`
	Warnings    []string             `json:"warnings"`
	NextSteps   []string             `json:"next_steps"`
}
