package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rwatoken/internal/cache"
	"rwatoken/internal/domain"
	"rwatoken/internal/logger"
	"rwatoken/internal/metrics"
	"rwatoken/internal/models"
)

// Bookkeeping step names, as reported to callers.
const (
	stepAsset       = "asset"
	stepToken       = "token"
	stepTransaction = "transaction_record"
	stepPortfolio   = "portfolio_entry"
	stepAudit       = "audit_log"
)

type criticality string

const (
	critical    criticality = "critical"
	nonCritical criticality = "non_critical"
	bestEffort  criticality = "best_effort"
)

const reconcileFallbackPrefix = "reconcile:"

// issuanceRecord is a ledger fact plus everything needed to book it. It is
// stored as the payload of a reconciliation task, so bookkeeping can be
// finished later without talking to the ledger again.
type issuanceRecord struct {
	OperationID  string                 `json:"operation_id"`
	Asset        domain.AssetDescriptor `json:"asset"`
	Spec         domain.TokenSpec       `json:"spec"`
	Caller       domain.Caller          `json:"caller"`
	Token        domain.TokenIdentity   `json:"token"`
	Distributor  string                 `json:"distributor,omitempty"`
	Transactions []ledgerFact           `json:"transactions"`
}

// ledgerFact is one submitted transaction of an issuance.
type ledgerFact struct {
	Role       string                         `json:"role"`
	Result     domain.LedgerTransactionResult `json:"result"`
	LastLedger uint32                         `json:"last_ledger,omitempty"`
}

// issuing returns the fact of the transaction that created the token.
func (r *issuanceRecord) issuing() *ledgerFact {
	for i := range r.Transactions {
		if r.Transactions[i].Role == models.TxRoleIssuance {
			return &r.Transactions[i]
		}
	}
	return nil
}

// bookkeepingReport folds the outcome of every step.
type bookkeepingReport struct {
	completed []string
	failed    []string
	warnings  []string
	degraded  bool
	collision *symbolTakenError
	asset     *models.Asset
	token     *models.Token
	entry     *models.PortfolioEntry
}

func (r *bookkeepingReport) status() domain.BookkeepingStatus {
	switch {
	case r.degraded:
		return domain.BookkeepingDegraded
	case len(r.failed) > 0:
		return domain.BookkeepingPartial
	}
	return domain.BookkeepingComplete
}

// symbolTakenError reports that a symbol already belongs to a token
// issued by a different transaction. Retrying cannot clear it.
type symbolTakenError struct {
	Symbol string
	TxHash string
}

func (e *symbolTakenError) Error() string {
	return fmt.Sprintf("symbol %s is already recorded for transaction %s", e.Symbol, e.TxHash)
}

type bookStep struct {
	name        string
	criticality criticality
	run         func(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport) error
}

// bookkeeper writes the durable rows that mirror a validated issuance.
type bookkeeper struct {
	db         *gorm.DB
	cache      cache.Cache
	portfolios PortfolioServicer
	audit      AuditServicer
	log        *zap.SugaredLogger
}

func newBookkeeper(db *gorm.DB, c cache.Cache, portfolios PortfolioServicer, audit AuditServicer) *bookkeeper {
	return &bookkeeper{db: db, cache: c, portfolios: portfolios, audit: audit, log: logger.Get()}
}

func (b *bookkeeper) steps(auditAction string) []bookStep {
	return []bookStep{
		{name: stepAsset, criticality: critical, run: b.recordAsset},
		{name: stepToken, criticality: critical, run: b.recordToken},
		{name: stepTransaction, criticality: nonCritical, run: b.recordTransactions},
		{name: stepPortfolio, criticality: nonCritical, run: b.creditPortfolio},
		{name: stepAudit, criticality: bestEffort, run: func(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport) error {
			return b.appendAudit(ctx, rec, rep, auditAction)
		}},
	}
}

// record runs every step in order. Every step is idempotent, so a record
// can be replayed by the reconciler. After a critical failure the
// remaining dependent steps are skipped and reported as failed.
func (b *bookkeeper) record(ctx context.Context, rec *issuanceRecord, auditAction string) *bookkeepingReport {
	rep := &bookkeepingReport{}
	var blockedBy string

	for _, step := range b.steps(auditAction) {
		if blockedBy != "" && step.criticality != bestEffort {
			rep.failed = append(rep.failed, step.name)
			rep.warnings = append(rep.warnings, fmt.Sprintf("%s: skipped because %s was not recorded", step.name, blockedBy))
			continue
		}

		err := step.run(ctx, rec, rep)
		if err == nil {
			rep.completed = append(rep.completed, step.name)
			continue
		}

		metrics.BookkeepingFailures.WithLabelValues(step.name, string(step.criticality)).Inc()
		var taken *symbolTakenError
		if errors.As(err, &taken) {
			rep.collision = taken
		}
		b.log.Errorw("bookkeeping step failed",
			"operation_id", rec.OperationID,
			"symbol", rec.Token.Symbol,
			"step", step.name,
			"criticality", step.criticality,
			"error", err,
		)

		switch step.criticality {
		case critical:
			rep.degraded = true
			blockedBy = step.name
			fallthrough
		case nonCritical:
			rep.failed = append(rep.failed, step.name)
			rep.warnings = append(rep.warnings, fmt.Sprintf("%s: not recorded, queued for reconciliation", step.name))
		default:
			rep.warnings = append(rep.warnings, fmt.Sprintf("%s: not recorded", step.name))
		}
	}
	return rep
}

func (b *bookkeeper) recordAsset(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport) error {
	db := b.db.WithContext(ctx)

	var existing models.Asset
	err := db.Where("operation_id = ?", rec.OperationID).First(&existing).Error
	if err == nil {
		rep.asset = &existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	a := rec.Asset
	asset := &models.Asset{
		OperationID:       rec.OperationID,
		OwnerID:           rec.Caller.UserID,
		Name:              a.Name,
		Category:          string(a.Category),
		Description:       a.Description,
		Location:          a.Location,
		Custodian:         a.Custodian,
		Jurisdiction:      a.Jurisdiction,
		Currency:          a.Currency,
		FaceValue:         a.FaceValue,
		IssueDate:         a.IssueDate,
		ValuationAmount:   a.Valuation.Amount,
		ValuationCurrency: valuationCurrency(a),
		ValuationMethod:   a.Valuation.Method,
		ValuationDate:     a.Valuation.Date,
		LegalReferences:   models.StringList(a.LegalReferences),
		Attributes:        models.StringMap(a.Attributes),
		MetadataHex:       rec.Token.MetadataHex,
	}
	if err := db.Create(asset).Error; err != nil {
		return err
	}
	rep.asset = asset
	return nil
}

func (b *bookkeeper) recordToken(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport) error {
	fact := rec.issuing()
	if fact == nil {
		return errors.New("record has no issuing transaction")
	}
	db := b.db.WithContext(ctx)

	var existing models.Token
	err := db.Where("symbol = ?", rec.Token.Symbol).First(&existing).Error
	if err == nil {
		if existing.TxHash != fact.Result.Hash {
			return &symbolTakenError{Symbol: existing.Symbol, TxHash: existing.TxHash}
		}
		rep.token = &existing
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	t := rec.Token
	token := &models.Token{
		AssetID:            rep.asset.ID,
		OperationID:        rec.OperationID,
		CreatedBy:          rec.Caller.UserID,
		Symbol:             t.Symbol,
		CurrencyCode:       t.CurrencyCode,
		Mode:               string(t.Mode),
		IssuanceID:         t.IssuanceID,
		IssuerAddress:      t.Issuer,
		DistributorAddress: rec.Distributor,
		TotalSupply:        t.TotalSupply,
		Decimals:           t.Decimals,
		Flags:              t.Flags,
		TransferFee:        transferFeeField(t),
		TxHash:             fact.Result.Hash,
		LedgerIndex:        fact.Result.LedgerIndex,
	}
	if err := db.Create(token).Error; err != nil {
		return err
	}
	rep.token = token
	return nil
}

func (b *bookkeeper) recordTransactions(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport) error {
	db := b.db.WithContext(ctx)

	for _, fact := range rec.Transactions {
		var count int64
		if err := db.Model(&models.LedgerTransaction{}).Where("hash = ?", fact.Result.Hash).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		r := fact.Result
		row := &models.LedgerTransaction{
			TokenID:         rep.token.ID,
			OperationID:     rec.OperationID,
			Role:            fact.Role,
			Hash:            r.Hash,
			TransactionType: r.TransactionType,
			Account:         r.Account,
			LedgerIndex:     r.LedgerIndex,
			FeeDrops:        r.FeeDrops,
			EngineResult:    r.EngineResult,
			IssuanceID:      r.IssuanceID,
			Validated:       r.Validated,
		}
		if err := db.Create(row).Error; err != nil {
			return err
		}
	}
	return nil
}

func (b *bookkeeper) creditPortfolio(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport) error {
	portfolio, err := b.portfolios.DefaultPortfolio(ctx, rec.Caller.UserID)
	if err != nil {
		return err
	}
	entry, err := b.portfolios.CreditToken(ctx, portfolio.ID, rep.token, rec.Spec.TotalSupply,
		rec.Asset.Valuation.Amount, valuationCurrency(rec.Asset))
	if err != nil {
		return err
	}
	rep.entry = entry
	return nil
}

func (b *bookkeeper) appendAudit(ctx context.Context, rec *issuanceRecord, rep *bookkeepingReport, action string) error {
	resourceID := rec.Token.Symbol
	if rep.token != nil {
		resourceID = rep.token.ID
	}
	changes := map[string]any{
		"symbol":       rec.Token.Symbol,
		"mode":         rec.Token.Mode,
		"issuance_id":  rec.Token.IssuanceID,
		"total_supply": rec.Token.TotalSupply,
	}
	if fact := rec.issuing(); fact != nil {
		changes["tx_hash"] = fact.Result.Hash
	}
	if len(rep.failed) > 0 {
		changes["failed_steps"] = rep.failed
	}
	return b.audit.Log(ctx, AuditEntry{
		UserID:       rec.Caller.UserID,
		OperationID:  rec.OperationID,
		Action:       action,
		ResourceType: "token",
		ResourceID:   resourceID,
		IPAddress:    rec.Caller.IPAddress,
		Changes:      changes,
	})
}

// transferFeeField is the fee stored on the token row: the MPT fee in
// 1/1000 percent, or the trust-line TransferRate.
func transferFeeField(t domain.TokenIdentity) uint32 {
	if t.Mode == domain.IssuanceModeTrustLine {
		return t.TransferRate
	}
	return t.TransferFee
}

// fallbackTask is the cache form of a task the store refused.
type fallbackTask struct {
	models.ReconciliationTask
	Payload string `json:"payload"`
}

// queue records a reconciliation task for rec. When the store refuses it
// the task is parked in the cache under reconcile:<operationId>.
func (b *bookkeeper) queue(ctx context.Context, rec *issuanceRecord, txHash string, status models.ReconciliationStatus, reason string, failed []string) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding reconciliation payload: %w", err)
	}
	task := models.ReconciliationTask{
		OperationID: rec.OperationID,
		Symbol:      rec.Token.Symbol,
		TxHash:      txHash,
		Status:      status,
		Reason:      reason,
		FailedSteps: models.StringList(failed),
		Payload:     string(payload),
	}

	storeErr := b.db.WithContext(ctx).Create(&task).Error
	if storeErr == nil {
		metrics.ReconciliationQueue.WithLabelValues("queued").Inc()
		b.log.Warnw("reconciliation task queued",
			"operation_id", rec.OperationID,
			"symbol", rec.Token.Symbol,
			"status", status,
			"failed_steps", failed,
		)
		return nil
	}

	raw, err := json.Marshal(fallbackTask{ReconciliationTask: task, Payload: task.Payload})
	if err != nil {
		return fmt.Errorf("encoding fallback task: %w", err)
	}
	if _, err := b.cache.SetIfAbsent(ctx, reconcileFallbackPrefix+rec.OperationID, string(raw), cache.IssuedMarkerTTL); err != nil {
		return fmt.Errorf("queueing reconciliation: store: %v; cache: %w", storeErr, err)
	}
	metrics.ReconciliationQueue.WithLabelValues("queued_cache").Inc()
	b.log.Warnw("reconciliation task parked in cache",
		"operation_id", rec.OperationID,
		"symbol", rec.Token.Symbol,
		"store_error", storeErr,
	)
	return nil
}

// loadTask finds a task in the store, then in the cache fallback.
func (b *bookkeeper) loadTask(ctx context.Context, operationID string) (*models.ReconciliationTask, bool, error) {
	var task models.ReconciliationTask
	err := b.db.WithContext(ctx).Where("operation_id = ?", operationID).First(&task).Error
	if err == nil {
		return &task, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		b.log.Warnw("reconciliation store lookup failed, trying cache", "operation_id", operationID, "error", err)
	}

	raw, cacheErr := b.cache.Get(ctx, reconcileFallbackPrefix+operationID)
	if errors.Is(cacheErr, cache.ErrCacheMiss) {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if cacheErr != nil {
		return nil, false, cacheErr
	}
	var parked fallbackTask
	if err := json.Unmarshal([]byte(raw), &parked); err != nil {
		return nil, false, fmt.Errorf("decoding fallback task: %w", err)
	}
	parked.ReconciliationTask.Payload = parked.Payload
	return &parked.ReconciliationTask, true, nil
}

// dropFallback removes a parked task once the store holds it.
func (b *bookkeeper) dropFallback(ctx context.Context, operationID string) {
	if err := b.cache.Del(ctx, reconcileFallbackPrefix+operationID); err != nil {
		b.log.Warnw("failed to drop parked reconciliation task", "operation_id", operationID, "error", err)
	}
}
