package services

import (
	"context"
	"encoding/json"
	"testing"

	"rwatoken/internal/models"
	"rwatoken/internal/testutil"
)

func TestAuditLog(t *testing.T) {
	t.Run("records_entry", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewAuditService(db)

		err := svc.Log(context.Background(), AuditEntry{
			UserID:       "user-1",
			OperationID:  "0192a4c6-7e1b-7f00-8000-000000000001",
			Action:       actionTokenized,
			ResourceType: "token",
			ResourceID:   "GOLD001",
			IPAddress:    "203.0.113.7",
			Changes:      map[string]any{"symbol": "GOLD001"},
		})
		testutil.AssertNoError(t, err)

		var row models.AuditLog
		if err := db.First(&row).Error; err != nil {
			t.Fatalf("expected audit row: %v", err)
		}
		var changes map[string]any
		if err := json.Unmarshal([]byte(row.Changes), &changes); err != nil || changes["symbol"] != "GOLD001" {
			t.Errorf("unexpected changes %q", row.Changes)
		}
	})

	t.Run("store_failure_is_returned", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		testutil.NewStoreOutage(t, db, "audit_logs")
		svc := NewAuditService(db)

		if err := svc.Log(context.Background(), AuditEntry{UserID: "u", Action: "a", ResourceType: "r"}); err == nil {
			t.Error("expected the store error to be returned")
		}
	})
}
