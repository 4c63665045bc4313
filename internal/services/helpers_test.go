package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"rwatoken/internal/cache"
	"rwatoken/internal/domain"
	apperrors "rwatoken/internal/errors"
	"rwatoken/internal/ledger"
	"rwatoken/internal/ledger/ledgertest"
	"rwatoken/internal/logger"
	"rwatoken/internal/testutil"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}

// harness wires the services against sqlite, miniredis and a fake node.
type harness struct {
	db         *gorm.DB
	node       *ledgertest.Server
	mr         *miniredis.Miniredis
	cache      cache.Cache
	svc        TokenizationServicer
	recon      ReconciliationServicer
	portfolios PortfolioServicer
	tokens     TokenServicer
	creds      domain.IssuerCredentials
	cfg        TokenizationConfig
}

func newHarness(t *testing.T, tune ...func(*TokenizationConfig)) *harness {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	node := ledgertest.NewServer()
	t.Cleanup(node.Close)
	client, err := ledger.Dial(context.Background(), ledger.Config{URL: node.URL, Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("failed to dial fake node: %v", err)
	}
	t.Cleanup(client.Close)

	mr := miniredis.RunT(t)
	rc := cache.NewRedisCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = rc.Close() })

	cfg := TokenizationConfig{
		LockTTL:       time.Minute,
		SubmitTimeout: 5 * time.Second,
		RateLimit:     100,
		RateWindow:    time.Minute,
	}
	for _, f := range tune {
		f(&cfg)
	}

	portfolios := NewPortfolioService(db)
	audit := NewAuditService(db)
	return &harness{
		db:         db,
		node:       node,
		mr:         mr,
		cache:      rc,
		svc:        NewTokenizationService(db, rc, ledger.NewSubmitter(client, 10*time.Millisecond), portfolios, audit, cfg),
		recon:      NewReconciliationService(db, rc, client, portfolios, audit),
		portfolios: portfolios,
		tokens:     NewTokenService(db),
		creds: domain.IssuerCredentials{
			Address:            ledgertest.Address(1),
			Secret:             "sIssuerSecret",
			DistributorAddress: ledgertest.Address(2),
			DistributorSecret:  "sDistributorSecret",
		},
		cfg: cfg,
	}
}

func (h *harness) tokenize(t *testing.T, spec domain.TokenSpec, caller domain.Caller) (*domain.TokenizationResult, error) {
	t.Helper()
	return h.svc.Tokenize(context.Background(), goldAsset(), spec, h.creds, caller)
}

func goldAsset() domain.AssetDescriptor {
	return domain.AssetDescriptor{
		Name:            "Zurich Vault Gold Reserve",
		Category:        domain.AssetCategoryPreciousMetal,
		Description:     "LBMA good delivery bars held in allocated storage",
		Location:        "Zurich, CH",
		Custodian:       "Helvetia Vaults AG",
		Jurisdiction:    "CH",
		Currency:        "USD",
		FaceValue:       decimal.NewFromInt(2),
		IssueDate:       "2026-01-15",
		Valuation:       domain.Valuation{Amount: decimal.NewFromInt(1_000_000), Currency: "USD", Method: "spot", Date: "2026-01-10"},
		LegalReferences: []string{"CH-ZH-2026-0042"},
		Attributes:      map[string]string{"purity": "999.9"},
	}
}

func goldSpec(symbol string) domain.TokenSpec {
	return domain.TokenSpec{Symbol: symbol, TotalSupply: 500000, Decimals: 6}
}

func testCaller() domain.Caller {
	return domain.Caller{
		UserID:        testutil.TestUserID(),
		WalletAddress: ledgertest.Address(9),
		IPAddress:     "203.0.113.7",
	}
}

func appErrorOf(t *testing.T, err error) *apperrors.AppError {
	t.Helper()
	return testutil.AsAppError(t, err)
}

func detail(t *testing.T, err error, key string) string {
	t.Helper()
	return testutil.ErrorDetail(t, err, key)
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return n
}
