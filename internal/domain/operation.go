package domain

import "time"

// OperationStatus is the lifecycle state of a TokenizationOperation.
type OperationStatus string

const OperationInProgress OperationStatus = "in_progress"

// TokenizationOperation is the lease stored under the idempotency lock key
// for the duration of one tokenization run.
type TokenizationOperation struct {
	OperationID string          `json:"operation_id"`
	Symbol      string          `json:"symbol"`
	Wallet      string          `json:"wallet"`
	Status      OperationStatus `json:"status"`
	StartedAt   time.Time       `json:"started_at"`
	TTL         time.Duration   `json:"ttl"`
}

// Expired reports whether the lease has outlived its TTL at now.
func (o TokenizationOperation) Expired(now time.Time) bool {
	return o.TTL > 0 && now.After(o.StartedAt.Add(o.TTL))
}

// LedgerTransactionResult is the confirmed outcome of a ledger submission.
// It is produced once per successful submission and never modified.
type LedgerTransactionResult struct {
	Hash            string `json:"hash"`
	LedgerIndex     uint32 `json:"ledger_index"`
	FeeDrops        string `json:"fee_drops"`
	Validated       bool   `json:"validated"`
	EngineResult    string `json:"engine_result"`
	IssuanceID      string `json:"issuance_id"`
	TransactionType string `json:"transaction_type"`
	Account         string `json:"account"`
}
