package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"rwatoken/internal/cache"
	"rwatoken/internal/domain"
	apperrors "rwatoken/internal/errors"
	"rwatoken/internal/ledger"
	"rwatoken/internal/logger"
	"rwatoken/internal/metrics"
	"rwatoken/internal/models"
)

// DefaultReconcileBatch is the batch size used when none is given.
const DefaultReconcileBatch = 50

// reconciliationService finishes bookkeeping for validated issuances. It
// reads the ledger but never submits to it.
type reconciliationService struct {
	db      *gorm.DB
	ledger  LedgerReader
	markers *cache.IssuedMarkers
	books   *bookkeeper
	now     func() time.Time
	log     *zap.SugaredLogger
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(
	db *gorm.DB,
	c cache.Cache,
	reader LedgerReader,
	portfolios PortfolioServicer,
	audit AuditServicer,
) ReconciliationServicer {
	return &reconciliationService{
		db:      db,
		ledger:  reader,
		markers: cache.NewIssuedMarkers(c),
		books:   newBookkeeper(db, c, portfolios, audit),
		now:     time.Now,
		log:     logger.Named("reconciliation"),
	}
}

// Reconcile works one task, found in the store or parked in the cache.
func (s *reconciliationService) Reconcile(ctx context.Context, operationID string) (*ReconcileResult, error) {
	task, parked, err := s.books.loadTask(ctx, operationID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if task == nil {
		return nil, apperrors.WithDetails(apperrors.ErrReconciliationNotFound, "operation_id", operationID)
	}
	return s.reconcile(ctx, task, !parked)
}

// ReconcilePending works the oldest open tasks in the store. Tasks parked
// in the cache are not listed here; they are picked up by operation id.
func (s *reconciliationService) ReconcilePending(ctx context.Context, limit int) RunResult {
	if limit <= 0 {
		limit = DefaultReconcileBatch
	}
	run := RunResult{Errors: map[string]string{}}

	var tasks []models.ReconciliationTask
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{string(models.ReconciliationPending), string(models.ReconciliationAwaitingValidation)}).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		s.log.Errorw("failed to list reconciliation tasks", "error", err)
		run.Errors["store"] = err.Error()
		return run
	}

	for i := range tasks {
		if ctx.Err() != nil {
			break
		}
		run.Scanned++
		res, err := s.reconcile(ctx, &tasks[i], true)
		switch {
		case err != nil:
			run.Failed++
			run.Errors[tasks[i].OperationID] = err.Error()
		case res.Status == models.ReconciliationResolved:
			run.Resolved++
		case res.Status == models.ReconciliationAbandoned:
			run.Abandoned++
		case res.Status == models.ReconciliationAwaitingValidation:
			run.Waiting++
		default:
			run.Failed++
			run.Errors[tasks[i].OperationID] = strings.Join(res.Failed, ", ")
		}
	}

	s.log.Infow("reconciliation pass finished",
		"scanned", run.Scanned,
		"resolved", run.Resolved,
		"abandoned", run.Abandoned,
		"waiting", run.Waiting,
		"failed", run.Failed,
	)
	return run
}

func (s *reconciliationService) reconcile(ctx context.Context, task *models.ReconciliationTask, stored bool) (*ReconcileResult, error) {
	res := &ReconcileResult{OperationID: task.OperationID, TxHash: task.TxHash, Status: task.Status}
	log := s.log.With("operation_id", task.OperationID, "symbol", task.Symbol, "tx_hash", task.TxHash)

	switch task.Status {
	case models.ReconciliationResolved, models.ReconciliationAbandoned:
		res.Note = "task is already closed"
		return res, nil
	case models.ReconciliationManual:
		return nil, s.manualError(task)
	}

	var rec issuanceRecord
	if err := json.Unmarshal([]byte(task.Payload), &rec); err != nil {
		s.escalate(ctx, log, task, stored, "unreadable payload: "+err.Error())
		return nil, s.manualError(task)
	}

	resp, err := s.ledger.TransactionByHash(ctx, task.TxHash)
	switch {
	case ledger.IsNotFound(err) || (err == nil && !resp.Validated):
		return s.unvalidated(ctx, log, task, stored, &rec, res)
	case err != nil:
		return nil, apperrors.WithDetails(apperrors.Wrap(apperrors.ErrLedgerUnavailable, err),
			"operation_id", task.OperationID, "tx_hash", task.TxHash)
	}

	if result := resp.Meta.TransactionResult; result != ledger.ResultSuccess {
		s.abandon(ctx, log, task, stored, "ledger result "+result)
		res.Status = task.Status
		res.Note = "transaction failed on the ledger; nothing was issued"
		return res, nil
	}

	if task.Status == models.ReconciliationAwaitingValidation {
		if err := s.confirm(ctx, &rec, task.TxHash, resp); err != nil {
			s.escalate(ctx, log, task, stored, err.Error())
			return nil, s.manualError(task)
		}
	}

	report := s.books.record(ctx, &rec, actionReconciled)
	payload, err := json.Marshal(&rec)
	if err == nil {
		task.Payload = string(payload)
	}
	task.Attempts++
	task.FailedSteps = models.StringList(report.failed)
	res.Completed = nonNil(report.completed)
	res.Failed = report.failed

	if report.collision != nil {
		s.escalate(ctx, log, task, stored, report.collision.Error())
		return nil, s.manualError(task)
	}

	if len(report.failed) == 0 {
		now := s.now()
		task.Status = models.ReconciliationResolved
		task.ResolvedAt = &now
		task.LastError = ""
		metrics.ReconciliationQueue.WithLabelValues("resolved").Inc()
		log.Infow("reconciliation resolved", "attempts", task.Attempts)
	} else {
		task.Status = models.ReconciliationPending
		task.LastError = strings.Join(report.warnings, "; ")
		metrics.ReconciliationQueue.WithLabelValues("retry").Inc()
		log.Warnw("reconciliation incomplete", "attempts", task.Attempts, "failed_steps", report.failed)
	}
	if err := s.save(ctx, task, stored); err != nil {
		log.Errorw("failed to save reconciliation task", "error", err)
	}
	res.Status = task.Status
	return res, nil
}

// confirm fills in the validated result of a transaction whose outcome was
// unknown when the tokenization returned.
func (s *reconciliationService) confirm(ctx context.Context, rec *issuanceRecord, hash string, resp *ledger.TransactionResponse) error {
	var fact *ledgerFact
	for i := range rec.Transactions {
		if rec.Transactions[i].Result.Hash == hash {
			fact = &rec.Transactions[i]
		}
	}
	if fact == nil {
		return fmt.Errorf("transaction %s is not part of the record", hash)
	}
	if fact.Role != models.TxRoleIssuance {
		return fmt.Errorf("%s transaction validated but the issuance was never submitted", fact.Role)
	}

	fact.Result = domain.LedgerTransactionResult{
		Hash:            hash,
		LedgerIndex:     resp.LedgerIndex,
		FeeDrops:        resp.Fee,
		Validated:       true,
		EngineResult:    resp.Meta.TransactionResult,
		TransactionType: resp.TransactionType,
		Account:         resp.Account,
	}
	fact.LastLedger = 0

	id, err := issuanceID(rec.Token, resp.Meta)
	if err != nil {
		return err
	}
	fact.Result.IssuanceID = id
	rec.Token.IssuanceID = id

	if err := s.markers.Mark(ctx, rec.Spec.Symbol, hash); err != nil {
		s.log.Warnw("failed to record issued-symbol marker", "symbol", rec.Spec.Symbol, "error", err)
	}
	return nil
}

// unvalidated handles a transaction the ledger has no final result for.
// Once the ledger has moved past its LastLedgerSequence it can never be
// included, so the task is abandoned and the symbol freed.
func (s *reconciliationService) unvalidated(ctx context.Context, log *zap.SugaredLogger, task *models.ReconciliationTask, stored bool, rec *issuanceRecord, res *ReconcileResult) (*ReconcileResult, error) {
	if task.Status != models.ReconciliationAwaitingValidation {
		return nil, apperrors.WithDetails(
			apperrors.WithMessage(apperrors.ErrLedgerUnavailable, "The validated transaction is not available on the connected node"),
			"operation_id", task.OperationID, "tx_hash", task.TxHash)
	}

	var lastLedger uint32
	for _, fact := range rec.Transactions {
		if fact.Result.Hash == task.TxHash {
			lastLedger = fact.LastLedger
		}
	}
	current, err := s.ledger.LedgerCurrent(ctx)
	if err == nil && lastLedger != 0 && current > lastLedger {
		s.abandon(ctx, log, task, stored, ledger.ResultMaxLedger+": expired before validation")
		res.Status = task.Status
		res.Note = "transaction expired before validation; nothing was issued"
		return res, nil
	}

	res.Note = "transaction is not validated yet"
	return res, nil
}

func (s *reconciliationService) abandon(ctx context.Context, log *zap.SugaredLogger, task *models.ReconciliationTask, stored bool, reason string) {
	now := s.now()
	task.Status = models.ReconciliationAbandoned
	task.Reason = reason
	task.ResolvedAt = &now
	if err := s.save(ctx, task, stored); err != nil {
		log.Errorw("failed to save abandoned task", "error", err)
	}

	hash, found, err := s.markers.IssuedBy(ctx, task.Symbol)
	if err == nil && found && hash == task.TxHash {
		if err := s.markers.Clear(ctx, task.Symbol); err != nil {
			log.Warnw("failed to clear issued-symbol marker", "error", err)
		}
	}
	metrics.ReconciliationQueue.WithLabelValues("abandoned").Inc()
	log.Warnw("reconciliation abandoned", "reason", reason)
}

func (s *reconciliationService) escalate(ctx context.Context, log *zap.SugaredLogger, task *models.ReconciliationTask, stored bool, reason string) {
	task.Status = models.ReconciliationManual
	task.Reason = reason
	if err := s.save(ctx, task, stored); err != nil {
		log.Errorw("failed to save escalated task", "error", err)
	}
	metrics.ReconciliationQueue.WithLabelValues("manual").Inc()
	log.Errorw("reconciliation needs manual action", "reason", reason)
}

func (s *reconciliationService) manualError(task *models.ReconciliationTask) error {
	return apperrors.WithDetails(apperrors.ErrReconciliationRequired,
		"operation_id", task.OperationID,
		"tx_hash", task.TxHash,
		"reason", task.Reason,
	)
}

// save writes the task back. A task parked in the cache is moved into the
// store once the store accepts it.
func (s *reconciliationService) save(ctx context.Context, task *models.ReconciliationTask, stored bool) error {
	db := s.db.WithContext(ctx)
	if stored {
		return db.Save(task).Error
	}
	if err := db.Create(task).Error; err != nil {
		return err
	}
	s.books.dropFallback(ctx, task.OperationID)
	return nil
}

// Status answers what happened to a transaction: from the store when it
// was recorded, otherwise straight from the ledger.
func (s *reconciliationService) Status(ctx context.Context, txHash string) (*TransactionStatus, error) {
	hash := strings.ToUpper(txHash)
	db := s.db.WithContext(ctx)
	status := &TransactionStatus{Hash: hash}

	var row models.LedgerTransaction
	err := db.Where("hash = ?", hash).First(&row).Error
	switch {
	case err == nil:
		status.Source = "store"
		status.Validated = row.Validated
		status.EngineResult = row.EngineResult
		status.LedgerIndex = row.LedgerIndex
		status.TransactionType = row.TransactionType
		status.Account = row.Account
		status.IssuanceID = row.IssuanceID
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.fromLedger(ctx, status); err != nil {
			return nil, err
		}
	default:
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var task models.ReconciliationTask
	if err := db.Where("tx_hash = ?", hash).Order("created_at DESC").First(&task).Error; err == nil {
		status.Reconciliation = &task.Status
	}
	if status.Source == "" {
		if status.Reconciliation == nil {
			return nil, apperrors.WithDetails(apperrors.ErrTransactionNotFound, "tx_hash", hash)
		}
		status.Source = "reconciliation"
	}
	return status, nil
}

func (s *reconciliationService) fromLedger(ctx context.Context, status *TransactionStatus) error {
	resp, err := s.ledger.TransactionByHash(ctx, status.Hash)
	if ledger.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return apperrors.WithDetails(apperrors.Wrap(apperrors.ErrLedgerUnavailable, err), "tx_hash", status.Hash)
	}
	status.Source = "ledger"
	status.Validated = resp.Validated
	status.TransactionType = resp.TransactionType
	status.Account = resp.Account
	if resp.Validated {
		status.EngineResult = resp.Meta.TransactionResult
		status.LedgerIndex = resp.LedgerIndex
		status.IssuanceID = resp.Meta.MPTIssuanceID
	}
	return nil
}
