package models

// Token is the off-ledger record of an issued token. Symbol is unique
// across all tokens.
type Token struct {
	Base
	AssetID            string `gorm:"type:uuid;uniqueIndex;not null" json:"asset_id"`
	OperationID        string `gorm:"type:uuid;index;not null" json:"operation_id"`
	CreatedBy          string `gorm:"not null;index" json:"created_by"`
	Symbol             string `gorm:"uniqueIndex;size:20;not null" json:"symbol"`
	CurrencyCode       string `gorm:"size:40" json:"currency_code"`
	Mode               string `gorm:"not null" json:"mode"`
	IssuanceID         string `gorm:"index" json:"issuance_id"`
	IssuerAddress      string `gorm:"not null" json:"issuer_address"`
	DistributorAddress string `json:"distributor_address,omitempty"`
	TotalSupply        uint64 `gorm:"type:bigint;not null" json:"total_supply"`
	Decimals           uint8  `gorm:"not null" json:"decimals"`
	Flags              uint32 `gorm:"type:bigint" json:"flags"`
	TransferFee        uint32 `gorm:"type:bigint" json:"transfer_fee"`
	TxHash             string `gorm:"uniqueIndex;size:64;not null" json:"tx_hash"`
	LedgerIndex        uint32 `gorm:"type:bigint" json:"ledger_index"`

	Asset Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}
