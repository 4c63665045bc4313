// Package ledger builds, signs, submits and confirms XRP Ledger
// transactions for token issuance.
package ledger

import (
	"encoding/json"
	"strconv"
)

// Transaction types used by the issuance flows.
const (
	TxTypeMPTokenIssuanceCreate = "MPTokenIssuanceCreate"
	TxTypeAccountSet            = "AccountSet"
	TxTypeTrustSet              = "TrustSet"
	TxTypePayment               = "Payment"
)

// Engine results with special handling.
const (
	ResultSuccess   = "tesSUCCESS"
	ResultMaxLedger = "tefMAX_LEDGER"
)

// Amount is an issued-currency amount.
type Amount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// Transaction is the JSON form of an unsigned transaction. Only the
// fields used by the issuance flows are modelled.
type Transaction struct {
	TransactionType    string `json:"TransactionType"`
	Account            string `json:"Account"`
	Flags              uint32 `json:"Flags,omitempty"`
	Fee                string `json:"Fee,omitempty"`
	Sequence           uint32 `json:"Sequence,omitempty"`
	LastLedgerSequence uint32 `json:"LastLedgerSequence,omitempty"`

	// MPTokenIssuanceCreate
	AssetScale      uint8  `json:"AssetScale,omitempty"`
	MaximumAmount   string `json:"MaximumAmount,omitempty"`
	TransferFee     uint16 `json:"TransferFee,omitempty"`
	MPTokenMetadata string `json:"MPTokenMetadata,omitempty"`

	// AccountSet
	SetFlag      uint32 `json:"SetFlag,omitempty"`
	ClearFlag    uint32 `json:"ClearFlag,omitempty"`
	TransferRate uint32 `json:"TransferRate,omitempty"`

	// TrustSet and Payment
	LimitAmount *Amount `json:"LimitAmount,omitempty"`
	Amount      *Amount `json:"Amount,omitempty"`
	Destination string  `json:"Destination,omitempty"`
}

// SignedTransaction is a serialised, signed transaction ready to submit.
type SignedTransaction struct {
	Blob string
	Hash string
}

// SubmitResult is the preliminary response to a submission.
type SubmitResult struct {
	EngineResult        string `json:"engine_result"`
	EngineResultCode    int    `json:"engine_result_code"`
	EngineResultMessage string `json:"engine_result_message"`
	Accepted            bool   `json:"accepted"`
	Applied             bool   `json:"applied"`
	TxJSON              struct {
		Hash string `json:"hash"`
	} `json:"tx_json"`
}

// NodeFields is one side of an affected ledger entry.
type NodeFields struct {
	LedgerEntryType string         `json:"LedgerEntryType"`
	LedgerIndex     string         `json:"LedgerIndex"`
	NewFields       map[string]any `json:"NewFields,omitempty"`
	FinalFields     map[string]any `json:"FinalFields,omitempty"`
	PreviousFields  map[string]any `json:"PreviousFields,omitempty"`
}

// AffectedNode holds exactly one of its fields.
type AffectedNode struct {
	CreatedNode  *NodeFields `json:"CreatedNode,omitempty"`
	ModifiedNode *NodeFields `json:"ModifiedNode,omitempty"`
	DeletedNode  *NodeFields `json:"DeletedNode,omitempty"`
}

// Meta is transaction metadata from a validated ledger.
type Meta struct {
	TransactionIndex  uint32          `json:"TransactionIndex"`
	TransactionResult string          `json:"TransactionResult"`
	AffectedNodes     []AffectedNode  `json:"AffectedNodes"`
	MPTIssuanceID     string          `json:"mpt_issuance_id,omitempty"`
	DeliveredAmount   json.RawMessage `json:"delivered_amount,omitempty"`
}

// TransactionResponse is the result of looking a transaction up by hash.
type TransactionResponse struct {
	Hash               string `json:"hash"`
	LedgerIndex        uint32 `json:"ledger_index"`
	Validated          bool   `json:"validated"`
	Meta               Meta   `json:"meta"`
	Fee                string `json:"Fee"`
	Account            string `json:"Account"`
	TransactionType    string `json:"TransactionType"`
	Sequence           uint32 `json:"Sequence"`
	LastLedgerSequence uint32 `json:"LastLedgerSequence"`
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
