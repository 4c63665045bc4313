package domain

import (
	"github.com/shopspring/decimal"
)

// MaxTokenSupply is the protocol ceiling for an MPT issuance's MaximumAmount.
const MaxTokenSupply uint64 = 0x7FFFFFFFFFFFFFFF

// MaxDecimals bounds TokenSpec.Decimals (MPT AssetScale).
const MaxDecimals = 15

// Symbol length bounds, in bytes.
const (
	MinSymbolLength = 3
	MaxSymbolLength = 20
)

// IssuanceMode selects how the token is represented on the ledger.
type IssuanceMode string

const (
	IssuanceModeMPT       IssuanceMode = "mpt"
	IssuanceModeTrustLine IssuanceMode = "trustline"
)

// Valid reports whether m is a supported issuance mode.
func (m IssuanceMode) Valid() bool {
	return m == IssuanceModeMPT || m == IssuanceModeTrustLine
}

// TokenSpec describes the token to issue. The boolean options are tri-state:
// nil means "not specified" and leaves the protocol default in place.
type TokenSpec struct {
	Symbol             string           `json:"symbol"`
	TotalSupply        uint64           `json:"total_supply"`
	Decimals           uint8            `json:"decimals"`
	Mode               IssuanceMode     `json:"mode"`
	Transferable       *bool            `json:"transferable,omitempty"`
	Burnable           *bool            `json:"burnable,omitempty"`
	Mintable           *bool            `json:"mintable,omitempty"`
	Freezable          *bool            `json:"freezable,omitempty"`
	Tradable           *bool            `json:"tradable,omitempty"`
	Clawback           *bool            `json:"clawback,omitempty"`
	AuthRequired       *bool            `json:"auth_required,omitempty"`
	TransferFeePercent *decimal.Decimal `json:"transfer_fee_percent,omitempty"`
}

// EffectiveMode returns the issuance mode, defaulting to MPT.
func (s TokenSpec) EffectiveMode() IssuanceMode {
	if s.Mode == "" {
		return IssuanceModeMPT
	}
	return s.Mode
}

// IsSet reports whether a tri-state option is explicitly true.
func IsSet(b *bool) bool {
	return b != nil && *b
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// IssuerCredentials is the key material authorising issuance. The
// distributor pair is only used in trust-line mode, where the distributor
// opens the trust line and receives the initial supply.
type IssuerCredentials struct {
	Address            string `json:"-"`
	Secret             string `json:"-"`
	DistributorAddress string `json:"-"`
	DistributorSecret  string `json:"-"`
}

// Caller identifies who initiated a tokenization.
type Caller struct {
	UserID        string
	WalletAddress string
	IPAddress     string
}
