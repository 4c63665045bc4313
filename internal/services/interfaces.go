package services

import (
	"context"

	"github.com/shopspring/decimal"

	"rwatoken/internal/domain"
	"rwatoken/internal/ledger"
	"rwatoken/internal/models"
	"rwatoken/internal/pagination"
)

// TokenizationServicer defines the contract for issuing asset-backed tokens.
type TokenizationServicer interface {
	Tokenize(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error)
	MintMPT(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error)
}

// AuditEntry is one audit-log event.
type AuditEntry struct {
	UserID       string
	OperationID  string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]any
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, entry AuditEntry) error
}

// PortfolioServicer defines the contract for portfolio bookkeeping.
type PortfolioServicer interface {
	DefaultPortfolio(ctx context.Context, userID string) (*models.Portfolio, error)
	CreditToken(ctx context.Context, portfolioID string, token *models.Token, quantity uint64, value decimal.Decimal, currency string) (*models.PortfolioEntry, error)
	GetUserEntries(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.PortfolioEntry], error)
}

// TokenServicer defines the contract for reading issued tokens.
type TokenServicer interface {
	GetTokenBySymbol(ctx context.Context, symbol string) (*models.Token, error)
	GetUserTokens(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Token], error)
}

// ReconcileResult reports what one reconciliation did.
type ReconcileResult struct {
	OperationID string                      `json:"operation_id"`
	TxHash      string                      `json:"tx_hash"`
	Status      models.ReconciliationStatus `json:"status"`
	Completed   []string                    `json:"completed_steps"`
	Failed      []string                    `json:"failed_steps,omitempty"`
	Note        string                      `json:"note,omitempty"`
}

// RunResult summarises a batch reconciliation pass.
type RunResult struct {
	Scanned   int               `json:"scanned"`
	Resolved  int               `json:"resolved"`
	Abandoned int               `json:"abandoned"`
	Waiting   int               `json:"waiting"`
	Failed    int               `json:"failed"`
	Errors    map[string]string `json:"errors,omitempty"`
}

// TransactionStatus is the answer to "what happened to this hash".
type TransactionStatus struct {
	Hash            string                       `json:"hash"`
	Source          string                       `json:"source"`
	Validated       bool                         `json:"validated"`
	EngineResult    string                       `json:"engine_result,omitempty"`
	LedgerIndex     uint32                       `json:"ledger_index,omitempty"`
	TransactionType string                       `json:"transaction_type,omitempty"`
	Account         string                       `json:"account,omitempty"`
	IssuanceID      string                       `json:"issuance_id,omitempty"`
	Reconciliation  *models.ReconciliationStatus `json:"reconciliation_status,omitempty"`
}

// ReconciliationServicer defines the contract for finishing bookkeeping of
// validated issuances without touching the ledger again.
type ReconciliationServicer interface {
	Reconcile(ctx context.Context, operationID string) (*ReconcileResult, error)
	ReconcilePending(ctx context.Context, limit int) RunResult
	Status(ctx context.Context, txHash string) (*TransactionStatus, error)
}

// LedgerSubmitter submits a transaction and waits for a terminal result.
// *ledger.Submitter implements it.
type LedgerSubmitter interface {
	SubmitAndWait(ctx context.Context, tx ledger.Transaction, secret string) (*ledger.Outcome, error)
}

// LedgerReader looks transactions up without submitting anything.
// *ledger.Client implements it.
type LedgerReader interface {
	TransactionByHash(ctx context.Context, hash string) (*ledger.TransactionResponse, error)
	LedgerCurrent(ctx context.Context) (uint32, error)
}
