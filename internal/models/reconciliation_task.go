package models

import "time"

// ReconciliationStatus is the lifecycle of a ReconciliationTask.
type ReconciliationStatus string

const (
	// ReconciliationPending tasks are retried by the reconciler.
	ReconciliationPending ReconciliationStatus = "pending"
	// ReconciliationAwaitingValidation tasks wait for a submitted
	// transaction whose outcome was not yet known.
	ReconciliationAwaitingValidation ReconciliationStatus = "awaiting_validation"
	// ReconciliationManual tasks need a human and are never retried.
	ReconciliationManual    ReconciliationStatus = "manual"
	ReconciliationResolved  ReconciliationStatus = "resolved"
	ReconciliationAbandoned ReconciliationStatus = "abandoned"
)

// ReconciliationTask records bookkeeping that is missing for a ledger
// fact. It carries everything needed to finish the bookkeeping without
// touching the ledger again.
type ReconciliationTask struct {
	Base
	OperationID string               `gorm:"type:uuid;uniqueIndex;not null" json:"operation_id"`
	Symbol      string               `gorm:"index;not null" json:"symbol"`
	TxHash      string               `gorm:"index" json:"tx_hash"`
	Status      ReconciliationStatus `gorm:"index;not null" json:"status"`
	Reason      string               `json:"reason"`
	FailedSteps StringList           `gorm:"type:text" json:"failed_steps"`
	Payload     string               `gorm:"type:text" json:"-"`
	Attempts    int                  `gorm:"not null;default:0" json:"attempts"`
	LastError   string               `json:"last_error,omitempty"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty"`
}

// Open reports whether the task still blocks its symbol.
func (t *ReconciliationTask) Open() bool {
	switch t.Status {
	case ReconciliationResolved, ReconciliationAbandoned:
		return false
	}
	return true
}
