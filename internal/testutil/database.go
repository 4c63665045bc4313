// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"errors"
	"sync/atomic"
	"testing"

	"rwatoken/internal/models"
	"rwatoken/internal/uuid"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// allModels is the list of all GORM models to auto-migrate in tests.
var allModels = []interface{}{
	&models.Asset{},
	&models.Token{},
	&models.LedgerTransaction{},
	&models.Portfolio{},
	&models.PortfolioEntry{},
	&models.AuditLog{},
	&models.ReconciliationTask{},
}

// ErrStoreDown is returned by writes while a StoreOutage is active.
var ErrStoreDown = errors.New("store unavailable")

// SetupTestDB creates an in-memory SQLite database with all models migrated.
// Every call gets its own database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.New() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// One connection keeps concurrent tests away from SQLite table locks.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(allModels...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// StoreOutage makes inserts into the named tables fail while it is on.
type StoreOutage struct {
	tables map[string]bool
	on     atomic.Bool
}

// NewStoreOutage registers a create callback on db that fails inserts into
// tables. The outage starts switched on.
func NewStoreOutage(t *testing.T, db *gorm.DB, tables ...string) *StoreOutage {
	t.Helper()

	o := &StoreOutage{tables: map[string]bool{}}
	for _, name := range tables {
		o.tables[name] = true
	}
	o.on.Store(true)

	err := db.Callback().Create().Before("gorm:create").Register("testutil:store_outage", func(tx *gorm.DB) {
		if o.on.Load() && o.tables[tx.Statement.Table] {
			_ = tx.AddError(ErrStoreDown)
		}
	})
	if err != nil {
		t.Fatalf("failed to register store outage: %v", err)
	}
	return o
}

// Restore ends the outage.
func (o *StoreOutage) Restore() {
	o.on.Store(false)
}
