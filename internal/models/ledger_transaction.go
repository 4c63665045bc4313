package models

import (
	"errors"

	"gorm.io/gorm"
)

// ErrImmutableTransaction is returned when code tries to change a
// recorded ledger transaction.
var ErrImmutableTransaction = errors.New("ledger transactions are immutable")

// Ledger transaction roles within one tokenization.
const (
	TxRoleIssuance   = "issuance"
	TxRoleAccountSet = "account_set"
	TxRoleTrustSet   = "trust_set"
)

// LedgerTransaction records one validated ledger transaction. Rows are
// written once and never updated or deleted; corrections are new rows.
type LedgerTransaction struct {
	Base
	TokenID         string `gorm:"type:uuid;index" json:"token_id"`
	OperationID     string `gorm:"type:uuid;index;not null" json:"operation_id"`
	Role            string `gorm:"not null" json:"role"`
	Hash            string `gorm:"uniqueIndex;size:64;not null" json:"hash"`
	TransactionType string `gorm:"not null" json:"transaction_type"`
	Account         string `gorm:"not null" json:"account"`
	LedgerIndex     uint32 `gorm:"type:bigint" json:"ledger_index"`
	FeeDrops        string `json:"fee_drops"`
	EngineResult    string `gorm:"not null" json:"engine_result"`
	IssuanceID      string `json:"issuance_id,omitempty"`
	Validated       bool   `gorm:"not null" json:"validated"`
}

// BeforeUpdate rejects every update.
func (t *LedgerTransaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

// BeforeDelete rejects every delete, soft or hard.
func (t *LedgerTransaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
