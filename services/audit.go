package services

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/gorm"

	"mandap-backend/models"
)

// actorKey carries the audited username through the request transaction.
const actorKey = "audit:actor"

// WithActor tags the transaction with the acting username for revision
// headers. The new session makes the returned handle safe to reuse across
// many operations; a bare Set handle corrupts its cached statement on the
// second call.
func WithActor(tx *gorm.DB, actor string) *gorm.DB {
	return tx.Set(actorKey, actor).Session(&gorm.Session{})
}

func actorOf(tx *gorm.DB) string {
	if v, ok := tx.Get(actorKey); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "system"
}

// FieldChange is one audited field transition.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// AuditEntry is one element of a revision timeline.
type AuditEntry struct {
	RevisionNumber uint                   `json:"revision_number"`
	RevisionDate   time.Time              `json:"revision_date"`
	Action         string                 `json:"action"` // CREATE | UPDATE
	ChangedBy      string                 `json:"changed_by"`
	Changes        map[string]FieldChange `json:"changes"`
}

const dateLayout = "2006-01-02"

type customerSnapshot struct {
	Name             string   `json:"name"`
	Mobile           string   `json:"mobile"`
	Address          string   `json:"address"`
	AlternateContact string   `json:"alternate_contact"`
	Active           bool     `json:"active"`
	PalNumbers       []string `json:"pal_numbers"`
	Notes            string   `json:"notes"`
}

type inventoryItemSnapshot struct {
	NameGujarati string `json:"name_gujarati"`
	NameEnglish  string `json:"name_english"`
	DefaultRate  string `json:"default_rate"`
	Category     string `json:"category"`
	TotalStock   int    `json:"total_stock"`
	Active       bool   `json:"active"`
}

type orderItemSnapshot struct {
	InventoryItemID uint   `json:"inventory_item_id"`
	ItemName        string `json:"item_name"`
	BookedQty       int    `json:"booked_qty"`
	DispatchedQty   int    `json:"dispatched_qty"`
	ReturnedQty     int    `json:"returned_qty"`
}

type rentalOrderSnapshot struct {
	OrderDate          string              `json:"order_date"`
	ExpectedReturnDate string              `json:"expected_return_date"`
	Status             string              `json:"status"`
	Remarks            string              `json:"remarks"`
	Items              []orderItemSnapshot `json:"items"`
}

func newRevision(tx *gorm.DB, actor string) (*models.Revision, error) {
	rev := models.Revision{Username: actor}
	if err := tx.Create(&rev).Error; err != nil {
		return nil, err
	}
	return &rev, nil
}

// RecordCustomerRevision appends a full customer snapshot to the audit trail.
func RecordCustomerRevision(tx *gorm.DB, actor string, c *models.Customer, action string) error {
	rev, err := newRevision(tx, actor)
	if err != nil {
		return err
	}
	snap, err := json.Marshal(customerSnapshot{
		Name:             c.Name,
		Mobile:           c.Mobile,
		Address:          c.Address,
		AlternateContact: c.AlternateContact,
		Active:           c.Active,
		PalNumbers:       c.PalNumberList(),
		Notes:            c.Notes,
	})
	if err != nil {
		return err
	}
	return tx.Create(&models.CustomerRevision{
		RevisionID: rev.ID,
		CustomerID: c.ID,
		Action:     action,
		Snapshot:   snap,
	}).Error
}

// RecordInventoryItemRevision appends a full item snapshot to the audit trail.
func RecordInventoryItemRevision(tx *gorm.DB, actor string, it *models.InventoryItem, action string) error {
	rev, err := newRevision(tx, actor)
	if err != nil {
		return err
	}
	snap, err := json.Marshal(inventoryItemSnapshot{
		NameGujarati: it.NameGujarati,
		NameEnglish:  it.NameEnglish,
		DefaultRate:  it.DefaultRate.StringFixed(2),
		Category:     string(it.Category),
		TotalStock:   it.TotalStock,
		Active:       it.Active,
	})
	if err != nil {
		return err
	}
	return tx.Create(&models.InventoryItemRevision{
		RevisionID:      rev.ID,
		InventoryItemID: it.ID,
		Action:          action,
		Snapshot:        snap,
	}).Error
}

// RecordRentalOrderRevision appends a full order snapshot (header + lines) to
// the audit trail. Items must be preloaded with their inventory item.
func RecordRentalOrderRevision(tx *gorm.DB, actor string, o *models.RentalOrder, action string) error {
	rev, err := newRevision(tx, actor)
	if err != nil {
		return err
	}

	s := rentalOrderSnapshot{
		OrderDate: o.OrderDate.Format(dateLayout),
		Status:    string(o.Status),
		Remarks:   o.Remarks,
	}
	if o.ExpectedReturnDate != nil {
		s.ExpectedReturnDate = o.ExpectedReturnDate.Format(dateLayout)
	}
	for i := range o.Items {
		s.Items = append(s.Items, orderItemSnapshot{
			InventoryItemID: o.Items[i].InventoryItemID,
			ItemName:        o.Items[i].InventoryItem.NameEnglish,
			BookedQty:       o.Items[i].BookedQty,
			DispatchedQty:   o.Items[i].DispatchedQty,
			ReturnedQty:     o.Items[i].ReturnedQty,
		})
	}
	snap, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return tx.Create(&models.RentalOrderRevision{
		RevisionID:    rev.ID,
		RentalOrderID: o.ID,
		Action:        action,
		Snapshot:      snap,
	}).Error
}

// CustomerAuditTrail folds the customer's snapshot sequence into a reverse
// chronological change timeline.
func CustomerAuditTrail(tx *gorm.DB, customerID uint) ([]AuditEntry, error) {
	var revs []models.CustomerRevision
	if err := tx.Preload("Revision").
		Where("customer_id = ?", customerID).
		Order("revision_id ASC").
		Find(&revs).Error; err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(revs))
	var prev *customerSnapshot
	for _, r := range revs {
		var curr customerSnapshot
		if err := json.Unmarshal(r.Snapshot, &curr); err != nil {
			return nil, err
		}

		changes := map[string]FieldChange{}
		if prev == nil {
			if r.Action == models.RevisionInsert {
				changes["Status"] = FieldChange{New: "Customer created"}
			} else {
				changes["Status"] = FieldChange{New: "Existing customer updated (First tracked change)"}
				changes["Name"] = FieldChange{New: curr.Name}
				changes["Mobile"] = FieldChange{New: curr.Mobile}
				changes["Address"] = FieldChange{New: curr.Address}
			}
		} else {
			diffField(changes, "Name", prev.Name, curr.Name)
			diffField(changes, "Mobile", prev.Mobile, curr.Mobile)
			diffField(changes, "Address", prev.Address, curr.Address)
			diffField(changes, "Alternate Contact", prev.AlternateContact, curr.AlternateContact)
			diffField(changes, "Notes", prev.Notes, curr.Notes)
			if prev.Active != curr.Active {
				changes["Active"] = FieldChange{Old: prev.Active, New: curr.Active}
			}
			diffStringSet(changes, "Pal Numbers", prev.PalNumbers, curr.PalNumbers)
		}

		entries = append(entries, auditEntryFor(&r.Revision, r.RevisionID, r.Action, changes))
		snap := curr
		prev = &snap
	}

	reverseEntries(entries)
	return entries, nil
}

// InventoryItemAuditTrail folds the item's snapshot sequence into a reverse
// chronological change timeline.
func InventoryItemAuditTrail(tx *gorm.DB, itemID uint) ([]AuditEntry, error) {
	var revs []models.InventoryItemRevision
	if err := tx.Preload("Revision").
		Where("inventory_item_id = ?", itemID).
		Order("revision_id ASC").
		Find(&revs).Error; err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(revs))
	var prev *inventoryItemSnapshot
	for _, r := range revs {
		var curr inventoryItemSnapshot
		if err := json.Unmarshal(r.Snapshot, &curr); err != nil {
			return nil, err
		}

		changes := map[string]FieldChange{}
		if prev == nil {
			if r.Action == models.RevisionInsert {
				changes["Status"] = FieldChange{New: "Item created"}
			} else {
				changes["Status"] = FieldChange{New: "Existing item updated (First tracked change)"}
				changes["Name"] = FieldChange{New: curr.NameEnglish}
				changes["Total Stock"] = FieldChange{New: curr.TotalStock}
			}
		} else {
			diffField(changes, "Name (Gujarati)", prev.NameGujarati, curr.NameGujarati)
			diffField(changes, "Name (English)", prev.NameEnglish, curr.NameEnglish)
			diffField(changes, "Default Rate", prev.DefaultRate, curr.DefaultRate)
			diffField(changes, "Category", prev.Category, curr.Category)
			if prev.TotalStock != curr.TotalStock {
				changes["Total Stock"] = FieldChange{Old: prev.TotalStock, New: curr.TotalStock}
			}
			if prev.Active != curr.Active {
				changes["Active"] = FieldChange{Old: prev.Active, New: curr.Active}
			}
		}

		entries = append(entries, auditEntryFor(&r.Revision, r.RevisionID, r.Action, changes))
		snap := curr
		prev = &snap
	}

	reverseEntries(entries)
	return entries, nil
}

// RentalOrderAuditTrail folds the order's snapshot sequence, including
// line-level add/remove/quantity changes keyed by inventory item.
func RentalOrderAuditTrail(tx *gorm.DB, orderID uint) ([]AuditEntry, error) {
	var revs []models.RentalOrderRevision
	if err := tx.Preload("Revision").
		Where("rental_order_id = ?", orderID).
		Order("revision_id ASC").
		Find(&revs).Error; err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(revs))
	var prev *rentalOrderSnapshot
	for _, r := range revs {
		var curr rentalOrderSnapshot
		if err := json.Unmarshal(r.Snapshot, &curr); err != nil {
			return nil, err
		}

		changes := map[string]FieldChange{}
		if prev == nil {
			if r.Action == models.RevisionInsert {
				changes["Status"] = FieldChange{New: "Order created"}
			} else {
				changes["Status"] = FieldChange{New: "Existing order updated (First tracked change)"}
				changes["Order Date"] = FieldChange{New: curr.OrderDate}
				changes["Expected Return"] = FieldChange{New: curr.ExpectedReturnDate}
				changes["Remarks"] = FieldChange{New: curr.Remarks}
			}
		} else {
			diffField(changes, "Order Date", prev.OrderDate, curr.OrderDate)
			diffField(changes, "Expected Return", prev.ExpectedReturnDate, curr.ExpectedReturnDate)
			diffField(changes, "Status", prev.Status, curr.Status)
			diffField(changes, "Remarks", prev.Remarks, curr.Remarks)
		}
		diffOrderItems(changes, prev, &curr)

		entries = append(entries, auditEntryFor(&r.Revision, r.RevisionID, r.Action, changes))
		snap := curr
		prev = &snap
	}

	reverseEntries(entries)
	return entries, nil
}

func auditEntryFor(rev *models.Revision, revID uint, action string, changes map[string]FieldChange) AuditEntry {
	label := "UPDATE"
	if action == models.RevisionInsert {
		label = "CREATE"
	}
	return AuditEntry{
		RevisionNumber: revID,
		RevisionDate:   rev.Timestamp,
		Action:         label,
		ChangedBy:      rev.Username,
		Changes:        changes,
	}
}

func diffField(changes map[string]FieldChange, name, old, curr string) {
	if old != curr {
		changes[name] = FieldChange{Old: old, New: curr}
	}
}

func diffStringSet(changes map[string]FieldChange, name string, old, curr []string) {
	o := append([]string(nil), old...)
	n := append([]string(nil), curr...)
	sort.Strings(o)
	sort.Strings(n)
	if len(o) != len(n) {
		changes[name] = FieldChange{Old: old, New: curr}
		return
	}
	for i := range o {
		if o[i] != n[i] {
			changes[name] = FieldChange{Old: old, New: curr}
			return
		}
	}
}

func diffOrderItems(changes map[string]FieldChange, prev, curr *rentalOrderSnapshot) {
	oldItems := map[uint]orderItemSnapshot{}
	if prev != nil {
		for _, it := range prev.Items {
			oldItems[it.InventoryItemID] = it
		}
	}
	newItems := map[uint]orderItemSnapshot{}
	for _, it := range curr.Items {
		newItems[it.InventoryItemID] = it
	}

	for id, ni := range newItems {
		oi, ok := oldItems[id]
		if !ok {
			if prev != nil {
				changes["Item Added: "+ni.ItemName] = FieldChange{New: ni.BookedQty}
			}
			continue
		}
		if oi.BookedQty != ni.BookedQty {
			changes["Qty Changed: "+ni.ItemName] = FieldChange{Old: oi.BookedQty, New: ni.BookedQty}
		}
		if oi.DispatchedQty != ni.DispatchedQty {
			changes["Disp Qty: "+ni.ItemName] = FieldChange{Old: oi.DispatchedQty, New: ni.DispatchedQty}
		}
		if oi.ReturnedQty != ni.ReturnedQty {
			changes["Ret Qty: "+ni.ItemName] = FieldChange{Old: oi.ReturnedQty, New: ni.ReturnedQty}
		}
	}
	for id, oi := range oldItems {
		if _, ok := newItems[id]; !ok {
			changes["Item Removed: "+oi.ItemName] = FieldChange{Old: oi.BookedQty}
		}
	}
}

func reverseEntries(entries []AuditEntry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
