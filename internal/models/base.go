// Package models holds the gorm rows that record what was issued on the
// ledger and who holds it.
package models

import (
	"fmt"
	"time"

	"rwatoken/internal/uuid"

	"gorm.io/gorm"
)

// Base contains the columns shared by every table. IDs are UUIDv7 so rows
// sort by creation time.
type Base struct {
	ID        string         `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// BeforeCreate assigns a UUIDv7 when no ID was set and canonicalises a
// preset one.
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
		return nil
	}
	id, err := uuid.Parse(b.ID)
	if err != nil {
		return fmt.Errorf("invalid row id %q: %w", b.ID, err)
	}
	b.ID = id
	return nil
}
