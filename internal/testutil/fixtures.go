package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"rwatoken/internal/models"
	"rwatoken/internal/uuid"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestUserID returns a unique caller id.
func TestUserID() string {
	return fmt.Sprintf("user-%d", nextID())
}

// CreateTestAsset creates an asset owned by userID.
func CreateTestAsset(t *testing.T, db *gorm.DB, userID string) *models.Asset {
	t.Helper()

	asset := &models.Asset{
		OperationID:       uuid.New(),
		OwnerID:           userID,
		Name:              fmt.Sprintf("Test Asset %d", nextID()),
		Category:          "precious_metal",
		Currency:          "USD",
		ValuationAmount:   decimal.NewFromInt(1000000),
		ValuationCurrency: "USD",
		LegalReferences:   models.StringList{},
		Attributes:        models.StringMap{},
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// CreateTestToken creates a token with its asset under symbol.
func CreateTestToken(t *testing.T, db *gorm.DB, userID, symbol string) *models.Token {
	t.Helper()

	asset := CreateTestAsset(t, db, userID)
	token := &models.Token{
		AssetID:       asset.ID,
		OperationID:   asset.OperationID,
		CreatedBy:     userID,
		Symbol:        symbol,
		Mode:          "mpt",
		IssuanceID:    fmt.Sprintf("%048X", nextID()),
		IssuerAddress: "rPT1Sjq2YGrBMTttX4GZHjKu9dyfzbpAYe",
		TotalSupply:   1000,
		TxHash:        fmt.Sprintf("%064X", nextID()),
		LedgerIndex:   1000,
	}
	if err := db.Create(token).Error; err != nil {
		t.Fatalf("failed to create test token: %v", err)
	}
	return token
}

// CreateTestPortfolio creates a named portfolio for userID.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, userID, name string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		UserID:    userID,
		Name:      name,
		IsDefault: name == models.DefaultPortfolioName,
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestReconciliationTask creates an open task for symbol.
func CreateTestReconciliationTask(t *testing.T, db *gorm.DB, symbol string, status models.ReconciliationStatus) *models.ReconciliationTask {
	t.Helper()

	task := &models.ReconciliationTask{
		OperationID: uuid.New(),
		Symbol:      symbol,
		TxHash:      fmt.Sprintf("%064X", nextID()),
		Status:      status,
		Reason:      "test fixture",
		FailedSteps: models.StringList{},
		Payload:     "{}",
	}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("failed to create test reconciliation task: %v", err)
	}
	return task
}
