package models

import (
	"time"

	"gorm.io/datatypes"
)

// Revision actions.
const (
	RevisionInsert = "INSERT"
	RevisionUpdate = "UPDATE"
)

// Revision is the shared header for one audited mutation (the revinfo row).
type Revision struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Timestamp time.Time `json:"timestamp" gorm:"autoCreateTime"`
	Username  string    `json:"username" gorm:"size:100"`
}

// CustomerRevision is a full customer snapshot taken at one revision.
type CustomerRevision struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	RevisionID uint           `json:"revision_id" gorm:"index;not null"`
	Revision   Revision       `json:"-" gorm:"foreignKey:RevisionID"`
	CustomerID uint           `json:"customer_id" gorm:"index:idx_customer_revisions_entity;not null"`
	Action     string         `json:"action" gorm:"size:10"`
	Snapshot   datatypes.JSON `json:"snapshot" gorm:"type:jsonb"`
}

// InventoryItemRevision is a full inventory item snapshot at one revision.
type InventoryItemRevision struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	RevisionID      uint           `json:"revision_id" gorm:"index;not null"`
	Revision        Revision       `json:"-" gorm:"foreignKey:RevisionID"`
	InventoryItemID uint           `json:"inventory_item_id" gorm:"index:idx_item_revisions_entity;not null"`
	Action          string         `json:"action" gorm:"size:10"`
	Snapshot        datatypes.JSON `json:"snapshot" gorm:"type:jsonb"`
}

// RentalOrderRevision is a full order snapshot (header + lines) at one
// revision.
type RentalOrderRevision struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	RevisionID    uint           `json:"revision_id" gorm:"index;not null"`
	Revision      Revision       `json:"-" gorm:"foreignKey:RevisionID"`
	RentalOrderID uint           `json:"rental_order_id" gorm:"index:idx_order_revisions_entity;not null"`
	Action        string         `json:"action" gorm:"size:10"`
	Snapshot      datatypes.JSON `json:"snapshot" gorm:"type:jsonb"`
}
