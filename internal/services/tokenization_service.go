package services

import (
	"context"
	"errors"
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

// TokenizationConfig bounds a tokenization run.
type TokenizationConfig struct {
	LockTTL       time.Duration
	SubmitTimeout time.Duration
	RateLimit     int64
	RateWindow    time.Duration
}

// bookkeepingTimeout bounds the writes that follow a ledger result,
// counted from the end of submission.
const bookkeepingTimeout = 30 * time.Second

// Audit actions.
const (
	actionTokenized  = "tokenization.completed"
	actionReconciled = "tokenization.reconciled"
)

// tokenizationService runs the tokenization write path.
type tokenizationService struct {
	db        *gorm.DB
	locker    *cache.Locker
	limiter   *cache.RateLimiter
	markers   *cache.IssuedMarkers
	submitter LedgerSubmitter
	books     *bookkeeper
	cfg       TokenizationConfig
	log       *zap.SugaredLogger
}

// NewTokenizationService creates a new TokenizationServicer.
func NewTokenizationService(
	db *gorm.DB,
	c cache.Cache,
	submitter LedgerSubmitter,
	portfolios PortfolioServicer,
	audit AuditServicer,
	cfg TokenizationConfig,
) TokenizationServicer {
	return &tokenizationService{
		db:        db,
		locker:    cache.NewLocker(c),
		limiter:   cache.NewRateLimiter(c),
		markers:   cache.NewIssuedMarkers(c),
		submitter: submitter,
		books:     newBookkeeper(db, c, portfolios, audit),
		cfg:       cfg,
		log:       logger.Named("tokenization"),
	}
}

// Tokenize issues a token for an asset and records it.
func (s *tokenizationService) Tokenize(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error) {
	result, err := s.run(ctx, asset, spec, creds, caller)
	metrics.Tokenizations.WithLabelValues(string(spec.EffectiveMode()), outcomeLabel(result, err)).Inc()
	return result, err
}

// MintMPT issues a Multi-Purpose Token. An explicit trust-line mode is
// rejected.
func (s *tokenizationService) MintMPT(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error) {
	if spec.Mode != "" && spec.Mode != domain.IssuanceModeMPT {
		return nil, apperrors.WithDetails(
			apperrors.WithMessage(apperrors.ErrInvalidInput, "mode: this endpoint only issues multi-purpose tokens"),
			"field", "mode")
	}
	spec.Mode = domain.IssuanceModeMPT
	return s.Tokenize(ctx, asset, spec, creds, caller)
}

func (s *tokenizationService) run(ctx context.Context, asset domain.AssetDescriptor, spec domain.TokenSpec, creds domain.IssuerCredentials, caller domain.Caller) (*domain.TokenizationResult, error) {
	plan, err := planIssuance(asset, spec, creds, caller)
	if err != nil {
		return nil, planError(err)
	}

	if !s.limiter.Allow(ctx, "tokenize:"+caller.UserID, s.cfg.RateLimit, s.cfg.RateWindow) {
		return nil, apperrors.ErrRateLimited
	}

	lease, err := s.locker.TryAcquire(ctx, spec.Symbol, caller.WalletAddress, s.cfg.LockTTL)
	if err != nil {
		var busy *cache.BusyError
		if errors.As(err, &busy) {
			conflict := apperrors.WithDetails(apperrors.ErrTokenizationInProgress, "operation_id", busy.OperationID)
			if !busy.StartedAt.IsZero() {
				conflict = apperrors.WithDetails(conflict, "started_at", busy.StartedAt.Format(time.RFC3339))
			}
			return nil, conflict
		}
		return nil, apperrors.Wrap(apperrors.ErrCacheUnavailable, err)
	}
	opID := lease.Operation.OperationID
	defer s.release(ctx, lease)

	log := s.log.With("operation_id", opID, "symbol", spec.Symbol, "mode", plan.mode)

	if err := s.checkDuplicate(ctx, spec.Symbol); err != nil {
		return nil, apperrors.WithDetails(err, "operation_id", opID)
	}

	rec := &issuanceRecord{
		OperationID: opID,
		Asset:       asset,
		Spec:        spec,
		Caller:      caller,
		Token:       plan.identity,
		Distributor: plan.distributor,
	}

	// A broadcast transaction cannot be recalled, so neither submission
	// nor bookkeeping may be cut short by the caller going away.
	submitCtx, cancelSubmit := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.SubmitTimeout)
	defer cancelSubmit()

	for _, step := range plan.txs {
		start := time.Now()
		outcome, err := s.submitter.SubmitAndWait(submitCtx, step.tx, step.secret)
		observeSubmit(step.tx.TransactionType, start, err)
		if err != nil {
			failCtx, cancel := detach(ctx)
			defer cancel()
			return nil, s.submitFailed(failCtx, log, rec, step, err)
		}
		result := ledgerResult(outcome)
		if step.role == models.TxRoleIssuance {
			id, err := issuanceID(rec.Token, outcome.Meta)
			if err != nil {
				rec.Transactions = append(rec.Transactions, ledgerFact{Role: step.role, Result: result})
				failCtx, cancel := detach(ctx)
				defer cancel()
				return nil, s.inconsistent(failCtx, log, rec, result, err)
			}
			result.IssuanceID = id
			rec.Token.IssuanceID = id
		}
		rec.Transactions = append(rec.Transactions, ledgerFact{Role: step.role, Result: result})
	}

	workCtx, cancelWork := detach(ctx)
	defer cancelWork()

	fact := rec.issuing()
	log.Infow("issuance validated",
		"tx_hash", fact.Result.Hash,
		"ledger_index", fact.Result.LedgerIndex,
		"issuance_id", rec.Token.IssuanceID,
	)
	if err := s.markers.Mark(workCtx, spec.Symbol, fact.Result.Hash); err != nil {
		log.Warnw("failed to record issued-symbol marker", "error", err)
	}

	report := s.books.record(workCtx, rec, actionTokenized)
	if len(report.failed) > 0 {
		status, reason := models.ReconciliationPending, "bookkeeping incomplete"
		if report.collision != nil {
			status, reason = models.ReconciliationManual, report.collision.Error()
		}
		if err := s.books.queue(workCtx, rec, fact.Result.Hash, status, reason, report.failed); err != nil {
			log.Errorw("failed to queue reconciliation", "error", err)
			report.warnings = append(report.warnings, "reconciliation could not be queued; operator action required")
		}
	}

	return assemble(rec, report, plan.warnings), nil
}

// checkDuplicate is the single duplicate-symbol check. A symbol is taken
// when a Token row holds it, when an open reconciliation task holds it, or
// when the issued-symbol marker says the ledger already has it. The last
// two cover issuances whose rows never reached the store.
func (s *tokenizationService) checkDuplicate(ctx context.Context, symbol string) *apperrors.AppError {
	db := s.db.WithContext(ctx)

	var tokens int64
	if err := db.Model(&models.Token{}).Where("symbol = ?", symbol).Count(&tokens).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if tokens > 0 {
		return apperrors.WithDetails(apperrors.ErrDuplicateSymbol, "symbol", symbol)
	}

	var tasks int64
	err := db.Model(&models.ReconciliationTask{}).
		Where("symbol = ? AND status NOT IN ?", symbol,
			[]string{string(models.ReconciliationResolved), string(models.ReconciliationAbandoned)}).
		Count(&tasks).Error
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if tasks > 0 {
		return apperrors.WithDetails(apperrors.ErrDuplicateSymbol, "symbol", symbol, "reason", "pending reconciliation")
	}

	hash, found, err := s.markers.IssuedBy(ctx, symbol)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCacheUnavailable, err)
	}
	if found {
		return apperrors.WithDetails(apperrors.ErrDuplicateSymbol, "symbol", symbol, "tx_hash", hash)
	}
	return nil
}

// submitFailed maps a submission error. Nothing is recorded for a
// rejection; a transaction whose fate is unknown is queued so the
// reconciler can look it up by hash.
func (s *tokenizationService) submitFailed(ctx context.Context, log *zap.SugaredLogger, rec *issuanceRecord, step plannedTx, err error) error {
	var rejected *ledger.RejectedError
	if errors.As(err, &rejected) {
		log.Warnw("ledger rejected transaction",
			"role", step.role,
			"tx_hash", rejected.Hash,
			"engine_result", rejected.EngineResult,
		)
		return apperrors.WithDetails(apperrors.Wrap(apperrors.ErrLedgerRejected, err),
			"operation_id", rec.OperationID,
			"engine_result", rejected.EngineResult,
			"tx_hash", rejected.Hash,
		)
	}

	var pending *ledger.PendingError
	if errors.As(err, &pending) {
		log.Warnw("transaction outcome unknown, queueing for validation",
			"role", step.role,
			"tx_hash", pending.Hash,
			"error", pending.Err,
		)
		rec.Transactions = append(rec.Transactions, ledgerFact{
			Role:       step.role,
			Result:     domain.LedgerTransactionResult{Hash: pending.Hash, TransactionType: step.tx.TransactionType, Account: step.tx.Account},
			LastLedger: pending.LastLedger,
		})
		if step.role == models.TxRoleIssuance {
			if err := s.markers.Mark(ctx, rec.Spec.Symbol, pending.Hash); err != nil {
				log.Warnw("failed to record issued-symbol marker", "error", err)
			}
		}
		if err := s.books.queue(ctx, rec, pending.Hash, models.ReconciliationAwaitingValidation, "awaiting validation of "+step.role, nil); err != nil {
			log.Errorw("failed to queue pending transaction", "error", err)
		}
		return apperrors.WithDetails(apperrors.Wrap(apperrors.ErrLedgerPending, err),
			"operation_id", rec.OperationID,
			"tx_hash", pending.Hash,
		)
	}

	log.Errorw("ledger submission failed", "role", step.role, "error", err)
	return apperrors.WithDetails(apperrors.Wrap(apperrors.ErrLedgerUnavailable, err), "operation_id", rec.OperationID)
}

// inconsistent handles a validated issuance whose identifier cannot be
// recovered. The symbol is marked taken and a manual task is queued; the
// run is never retried automatically.
func (s *tokenizationService) inconsistent(ctx context.Context, log *zap.SugaredLogger, rec *issuanceRecord, result domain.LedgerTransactionResult, cause error) error {
	log.Errorw("issuance validated without a recoverable issuance id",
		"tx_hash", result.Hash,
		"error", cause,
	)
	if err := s.markers.Mark(ctx, rec.Spec.Symbol, result.Hash); err != nil {
		log.Warnw("failed to record issued-symbol marker", "error", err)
	}
	if err := s.books.queue(ctx, rec, result.Hash, models.ReconciliationManual, cause.Error(), nil); err != nil {
		log.Errorw("failed to queue manual reconciliation", "error", err)
	}
	return apperrors.WithDetails(apperrors.Wrap(apperrors.ErrReconciliationRequired, cause),
		"operation_id", rec.OperationID,
		"engine_result", result.EngineResult,
		"tx_hash", result.Hash,
	)
}

// detach returns a context for the writes that follow a ledger result.
// It survives both the caller and the submission deadline.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
}

func (s *tokenizationService) release(ctx context.Context, lease *cache.Lease) {
	if err := s.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
		s.log.Warnw("failed to release tokenization lock",
			"operation_id", lease.Operation.OperationID,
			"key", lease.Key(),
			"error", err,
		)
	}
}

// planError maps a planning failure onto the public taxonomy.
func planError(err error) error {
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &invalid):
		return apperrors.WithDetails(apperrors.WithMessage(apperrors.ErrInvalidInput, invalid.Error()), "field", invalid.Field)
	case errors.Is(err, errIssuerNotConfigured):
		return apperrors.Wrap(apperrors.ErrNotConfigured, err)
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func ledgerResult(o *ledger.Outcome) domain.LedgerTransactionResult {
	return domain.LedgerTransactionResult{
		Hash:            o.Hash,
		LedgerIndex:     o.LedgerIndex,
		FeeDrops:        o.Fee,
		Validated:       true,
		EngineResult:    o.EngineResult,
		TransactionType: o.TransactionType,
		Account:         o.Account,
	}
}

func observeSubmit(txType string, start time.Time, err error) {
	result := ledger.ResultSuccess
	var rejected *ledger.RejectedError
	var pending *ledger.PendingError
	switch {
	case errors.As(err, &rejected):
		result = rejected.EngineResult
	case errors.As(err, &pending):
		result = "pending"
	case err != nil:
		result = "error"
	}
	metrics.LedgerSubmitDuration.WithLabelValues(txType, result).Observe(time.Since(start).Seconds())
}

func outcomeLabel(result *domain.TokenizationResult, err error) string {
	if err == nil {
		if result != nil && result.Bookkeeping.Status != domain.BookkeepingComplete {
			return string(result.Bookkeeping.Status)
		}
		return "issued"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
