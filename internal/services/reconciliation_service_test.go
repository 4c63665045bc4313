package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"rwatoken/internal/domain"
	"rwatoken/internal/ledger"
	"rwatoken/internal/models"
	"rwatoken/internal/testutil"
	"rwatoken/internal/uuid"

	"gorm.io/gorm"
)

const issuedMarkerKey = "tokenize:issued:GOLD001"

func shortSubmit(cfg *TokenizationConfig) {
	cfg.SubmitTimeout = 150 * time.Millisecond
}

// pendingIssuance tokenizes GOLD001 against a held node and returns the
// operation id and hash of the unvalidated issuance.
func pendingIssuance(t *testing.T, h *harness) (string, string) {
	t.Helper()
	h.node.Hold()

	_, err := h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertAppError(t, err, "LEDGER_PENDING")
	opID, hash := detail(t, err, "operation_id"), detail(t, err, "tx_hash")
	if opID == "" || hash == "" {
		t.Fatalf("expected operation_id and tx_hash details, got %v", appErrorOf(t, err).Details)
	}
	return opID, hash
}

func TestReconcile_NotFound(t *testing.T) {
	h := newHarness(t)

	_, err := h.recon.Reconcile(context.Background(), "0192a4c6-7e1b-7f00-8000-00000000ffff")
	testutil.AssertAppError(t, err, "RECONCILIATION_NOT_FOUND")
}

func TestReconcile_RetriesUntilStoreRecovers(t *testing.T) {
	h := newHarness(t)
	outage := testutil.NewStoreOutage(t, h.db, "assets")

	result, err := h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertNoError(t, err)

	res, err := h.recon.Reconcile(context.Background(), result.OperationID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationPending {
		t.Errorf("expected task to stay pending, got %s", res.Status)
	}
	if len(res.Failed) == 0 || res.Failed[0] != stepAsset {
		t.Errorf("expected asset to fail again, got %v", res.Failed)
	}

	var task models.ReconciliationTask
	h.db.Where("operation_id = ?", result.OperationID).First(&task)
	if task.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", task.Attempts)
	}
	if task.LastError == "" {
		t.Error("expected the last error to be recorded")
	}

	outage.Restore()
	res, err = h.recon.Reconcile(context.Background(), result.OperationID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationResolved {
		t.Fatalf("expected resolved, got %s (failed %v)", res.Status, res.Failed)
	}

	h.db.Where("operation_id = ?", result.OperationID).First(&task)
	if task.ResolvedAt == nil || task.Attempts != 2 || len(task.FailedSteps) != 0 {
		t.Errorf("unexpected resolved task %+v", task)
	}

	// A resolved task is left alone.
	res, err = h.recon.Reconcile(context.Background(), result.OperationID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationResolved || res.Note == "" {
		t.Errorf("expected a no-op on a resolved task, got %+v", res)
	}

	var audits []models.AuditLog
	h.db.Where("operation_id = ?", result.OperationID).Order("created_at ASC").Find(&audits)
	if len(audits) != 3 || audits[0].Action != actionTokenized || audits[2].Action != actionReconciled {
		t.Errorf("expected one audit entry per attempt, got %+v", audits)
	}
	if h.node.Submits() != 1 {
		t.Errorf("expected 1 submission, got %d", h.node.Submits())
	}
}

func TestReconcile_SymbolTakenEscalates(t *testing.T) {
	h := newHarness(t)
	outage := testutil.NewStoreOutage(t, h.db, "tokens")

	result, err := h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertNoError(t, err)
	outage.Restore()

	// Another issuance claims the symbol before the task is retried.
	rival := models.Token{
		AssetID:       uuid.New(),
		OperationID:   uuid.New(),
		CreatedBy:     testutil.TestUserID(),
		Symbol:        "GOLD001",
		Mode:          string(domain.IssuanceModeMPT),
		IssuerAddress: h.creds.Address,
		TotalSupply:   1,
		TxHash:        strings.Repeat("AB", 32),
	}
	if err := h.db.Create(&rival).Error; err != nil {
		t.Fatalf("failed to seed rival token: %v", err)
	}

	_, err = h.recon.Reconcile(context.Background(), result.OperationID)
	testutil.AssertAppError(t, err, "RECONCILIATION_REQUIRED")
	if reason := detail(t, err, "reason"); !strings.Contains(reason, rival.TxHash) {
		t.Errorf("expected the reason to name the rival transaction, got %q", reason)
	}

	var task models.ReconciliationTask
	h.db.Where("operation_id = ?", result.OperationID).First(&task)
	if task.Status != models.ReconciliationManual {
		t.Fatalf("expected manual, got %s", task.Status)
	}

	run := h.recon.ReconcilePending(context.Background(), 10)
	if run.Scanned != 0 {
		t.Errorf("expected the escalated task to leave the retry queue, got %+v", run)
	}
}

func TestTokenize_SymbolTakenQueuesManual(t *testing.T) {
	h := newHarness(t)
	rival := models.Token{
		AssetID:       uuid.New(),
		OperationID:   uuid.New(),
		CreatedBy:     testutil.TestUserID(),
		Symbol:        "GOLD001",
		Mode:          string(domain.IssuanceModeMPT),
		IssuerAddress: h.creds.Address,
		TotalSupply:   1,
		TxHash:        strings.Repeat("CD", 32),
	}
	// The rival lands after the duplicate check has passed.
	err := h.db.Callback().Create().Before("gorm:create").Register("test:rival_token", func(tx *gorm.DB) {
		if tx.Statement.Table == "assets" && rival.ID == "" {
			if err := tx.Session(&gorm.Session{NewDB: true}).Create(&rival).Error; err != nil {
				t.Errorf("failed to seed rival token: %v", err)
			}
		}
	})
	if err != nil {
		t.Fatalf("failed to register callback: %v", err)
	}

	result, err := h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertNoError(t, err)
	if result.Bookkeeping.Status != domain.BookkeepingDegraded {
		t.Errorf("expected degraded bookkeeping, got %s", result.Bookkeeping.Status)
	}

	var task models.ReconciliationTask
	h.db.Where("operation_id = ?", result.OperationID).First(&task)
	if task.Status != models.ReconciliationManual {
		t.Errorf("expected the task to be queued for manual action, got %s", task.Status)
	}
	if !strings.Contains(task.Reason, rival.TxHash) {
		t.Errorf("expected the reason to name the rival transaction, got %q", task.Reason)
	}
}

func TestReconcile_PendingThenValidated(t *testing.T) {
	h := newHarness(t, shortSubmit)
	opID, hash := pendingIssuance(t, h)

	var task models.ReconciliationTask
	if err := h.db.Where("operation_id = ?", opID).First(&task).Error; err != nil {
		t.Fatalf("expected a queued task: %v", err)
	}
	if task.Status != models.ReconciliationAwaitingValidation || task.TxHash != hash {
		t.Errorf("unexpected task %+v", task)
	}
	if !h.mr.Exists(issuedMarkerKey) {
		t.Error("expected the symbol to be marked while the outcome is unknown")
	}
	if n := countRows(t, h.db, &models.Token{}); n != 0 {
		t.Errorf("expected no token rows yet, got %d", n)
	}

	res, err := h.recon.Reconcile(context.Background(), opID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationAwaitingValidation {
		t.Errorf("expected to keep waiting, got %s", res.Status)
	}

	h.node.Release()
	res, err = h.recon.Reconcile(context.Background(), opID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationResolved {
		t.Fatalf("expected resolved, got %s (failed %v)", res.Status, res.Failed)
	}

	token, err := h.tokens.GetTokenBySymbol(context.Background(), "GOLD001")
	testutil.AssertNoError(t, err)
	wantID, _ := ledger.ComputeMPTIssuanceID(1, h.creds.Address)
	if token.IssuanceID != wantID {
		t.Errorf("expected issuance id %s, got %s", wantID, token.IssuanceID)
	}
	if token.TxHash != hash || token.LedgerIndex == 0 {
		t.Errorf("expected the validated transaction on the token, got %+v", token)
	}
	if h.node.Submits() != 1 {
		t.Errorf("reconciliation must not resubmit: got %d submissions", h.node.Submits())
	}
}

func TestReconcile_PendingExpired(t *testing.T) {
	h := newHarness(t, shortSubmit)
	opID, _ := pendingIssuance(t, h)

	h.node.AdvanceLedger(ledger.DefaultLedgerOffset + 5)
	res, err := h.recon.Reconcile(context.Background(), opID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationAbandoned {
		t.Fatalf("expected abandoned, got %s", res.Status)
	}

	var task models.ReconciliationTask
	h.db.Where("operation_id = ?", opID).First(&task)
	if !strings.HasPrefix(task.Reason, ledger.ResultMaxLedger) {
		t.Errorf("expected an expiry reason, got %q", task.Reason)
	}
	if h.mr.Exists(issuedMarkerKey) {
		t.Error("expected the marker to be cleared")
	}

	// The symbol is free again: the next attempt reaches the ledger.
	_, err = h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertAppError(t, err, "LEDGER_PENDING")
	if h.node.Submits() != 2 {
		t.Errorf("expected a second submission, got %d", h.node.Submits())
	}
}

func TestReconcile_PendingFailedOnLedger(t *testing.T) {
	h := newHarness(t, shortSubmit)
	h.node.FinalResult("tecNO_AUTH")
	opID, _ := pendingIssuance(t, h)

	h.node.Release()
	res, err := h.recon.Reconcile(context.Background(), opID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationAbandoned {
		t.Fatalf("expected abandoned, got %s", res.Status)
	}
	if h.mr.Exists(issuedMarkerKey) {
		t.Error("expected the marker to be cleared")
	}
	if n := countRows(t, h.db, &models.Token{}); n != 0 {
		t.Errorf("expected no token rows, got %d", n)
	}
}

func TestReconcile_LedgerUnavailable(t *testing.T) {
	h := newHarness(t, shortSubmit)
	opID, _ := pendingIssuance(t, h)
	h.node.FailLookups(true)

	_, err := h.recon.Reconcile(context.Background(), opID)
	testutil.AssertAppError(t, err, "LEDGER_UNAVAILABLE")

	var task models.ReconciliationTask
	h.db.Where("operation_id = ?", opID).First(&task)
	if task.Status != models.ReconciliationAwaitingValidation {
		t.Errorf("expected the task to stay queued, got %s", task.Status)
	}
}

func TestReconcile_TaskParkedInCache(t *testing.T) {
	h := newHarness(t)
	outage := testutil.NewStoreOutage(t, h.db, "assets", "reconciliation_tasks")

	result, err := h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertNoError(t, err)
	if result.Bookkeeping.Status != domain.BookkeepingDegraded {
		t.Fatalf("expected degraded, got %s", result.Bookkeeping.Status)
	}
	parkedKey := reconcileFallbackPrefix + result.OperationID
	if !h.mr.Exists(parkedKey) {
		t.Fatal("expected the task to be parked in the cache")
	}
	if n := countRows(t, h.db, &models.ReconciliationTask{}); n != 0 {
		t.Errorf("expected no stored task, got %d", n)
	}

	// The issued marker still guards the symbol.
	_, err = h.tokenize(t, goldSpec("GOLD001"), testCaller())
	testutil.AssertAppError(t, err, "DUPLICATE_SYMBOL")

	outage.Restore()
	res, err := h.recon.Reconcile(context.Background(), result.OperationID)
	testutil.AssertNoError(t, err)
	if res.Status != models.ReconciliationResolved {
		t.Fatalf("expected resolved, got %s (failed %v)", res.Status, res.Failed)
	}
	if h.mr.Exists(parkedKey) {
		t.Error("expected the parked task to be dropped")
	}
	var task models.ReconciliationTask
	if err := h.db.Where("operation_id = ?", result.OperationID).First(&task).Error; err != nil {
		t.Fatalf("expected the task to be moved into the store: %v", err)
	}
	if task.Status != models.ReconciliationResolved {
		t.Errorf("expected stored task to be resolved, got %s", task.Status)
	}
}

func TestReconcilePending(t *testing.T) {
	h := newHarness(t)
	outage := testutil.NewStoreOutage(t, h.db, "assets")

	for _, symbol := range []string{"BATCH001", "BATCH002"} {
		_, err := h.tokenize(t, goldSpec(symbol), testCaller())
		testutil.AssertNoError(t, err)
	}
	testutil.CreateTestReconciliationTask(t, h.db, "MANUAL01", models.ReconciliationManual)

	run := h.recon.ReconcilePending(context.Background(), 10)
	if run.Scanned != 2 || run.Failed != 2 {
		t.Errorf("expected 2 scanned and failed during the outage, got %+v", run)
	}

	outage.Restore()
	run = h.recon.ReconcilePending(context.Background(), 10)
	if run.Scanned != 2 || run.Resolved != 2 {
		t.Errorf("expected 2 resolved, got %+v", run)
	}
	if len(run.Errors) != 0 {
		t.Errorf("expected no errors, got %v", run.Errors)
	}

	run = h.recon.ReconcilePending(context.Background(), 10)
	if run.Scanned != 0 {
		t.Errorf("expected nothing left to scan, got %+v", run)
	}
	if n := countRows(t, h.db, &models.Token{}); n != 2 {
		t.Errorf("expected 2 tokens, got %d", n)
	}
}

func TestStatus(t *testing.T) {
	t.Run("recorded", func(t *testing.T) {
		h := newHarness(t)
		result, err := h.tokenize(t, goldSpec("GOLD001"), testCaller())
		testutil.AssertNoError(t, err)

		status, err := h.recon.Status(context.Background(), strings.ToLower(result.Ledger.Transaction.Hash))
		testutil.AssertNoError(t, err)
		if status.Source != "store" || !status.Validated {
			t.Errorf("expected a validated stored transaction, got %+v", status)
		}
		if status.IssuanceID != result.Token.IssuanceID {
			t.Errorf("expected issuance id %s, got %s", result.Token.IssuanceID, status.IssuanceID)
		}
		if status.Reconciliation != nil {
			t.Errorf("expected no reconciliation, got %s", *status.Reconciliation)
		}
	})

	t.Run("pending_on_ledger", func(t *testing.T) {
		h := newHarness(t, shortSubmit)
		_, hash := pendingIssuance(t, h)

		status, err := h.recon.Status(context.Background(), hash)
		testutil.AssertNoError(t, err)
		if status.Source != "ledger" || status.Validated {
			t.Errorf("expected an unvalidated ledger transaction, got %+v", status)
		}
		if status.Reconciliation == nil || *status.Reconciliation != models.ReconciliationAwaitingValidation {
			t.Errorf("expected awaiting_validation, got %v", status.Reconciliation)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.recon.Status(context.Background(), strings.Repeat("AB", 32))
		testutil.AssertAppError(t, err, "TRANSACTION_NOT_FOUND")
	})

	t.Run("ledger_down", func(t *testing.T) {
		h := newHarness(t)
		h.node.FailLookups(true)
		_, err := h.recon.Status(context.Background(), strings.Repeat("AB", 32))
		testutil.AssertAppError(t, err, "LEDGER_UNAVAILABLE")
	})
}
