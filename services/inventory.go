package services

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mandap-backend/apperr"
	"mandap-backend/models"
)

// NewInventoryItem is the create payload for a catalog entry.
type NewInventoryItem struct {
	NameGujarati string          `json:"name_gujarati"`
	NameEnglish  string          `json:"name_english" validate:"required"`
	DefaultRate  decimal.Decimal `json:"default_rate"`
	Category     string          `json:"category"`
	TotalStock   int             `json:"total_stock" validate:"gte=0"`
}

// UpdateInventoryItem is a partial update; nil fields are left untouched.
type UpdateInventoryItem struct {
	NameGujarati *string          `json:"name_gujarati"`
	NameEnglish  *string          `json:"name_english"`
	DefaultRate  *decimal.Decimal `json:"default_rate"`
	Category     *string          `json:"category"`
	Active       *bool            `json:"active"`
	TotalStock   *int             `json:"total_stock" validate:"omitempty,gte=0"`
}

// ItemPendingCounts aggregates line counters over non-terminal orders.
type ItemPendingCounts struct {
	InventoryItemID uint `json:"inventory_item_id"`
	Booked          int  `json:"booked"`
	Dispatched      int  `json:"dispatched"`
	Returned        int  `json:"returned"`
}

// InventoryItemView is a catalog entry plus its pending dispatch quantity.
type InventoryItemView struct {
	models.InventoryItem
	PendingDispatchQty int `json:"pending_dispatch_qty"`
}

// ItemUsage is one active order line holding stock of an item.
type ItemUsage struct {
	CustomerID         uint   `json:"customer_id"`
	CustomerName       string `json:"customer_name"`
	OrderNumber        string `json:"order_number"`
	BookedQty          int    `json:"booked_qty"`
	DispatchedQty      int    `json:"dispatched_qty"`
	ReturnedQty        int    `json:"returned_qty"`
	PendingDispatchQty int    `json:"pending_dispatch_qty"`
	PendingReturnQty   int    `json:"pending_return_qty"`
}

// CreateItem adds a catalog entry at the end of the display order. Unknown
// categories fall back to MANDAP; available stock starts equal to total.
func CreateItem(tx *gorm.DB, in *NewInventoryItem) (*models.InventoryItem, error) {
	var maxOrder int
	if err := tx.Model(&models.InventoryItem{}).
		Select("COALESCE(MAX(display_order), 0)").
		Scan(&maxOrder).Error; err != nil {
		return nil, err
	}

	item := models.InventoryItem{
		NameGujarati:   in.NameGujarati,
		NameEnglish:    in.NameEnglish,
		DefaultRate:    in.DefaultRate,
		Category:       models.ParseItemCategory(in.Category),
		DisplayOrder:   maxOrder + 1,
		Active:         true,
		TotalStock:     in.TotalStock,
		AvailableStock: in.TotalStock,
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}
	if err := RecordInventoryItemRevision(tx, actorOf(tx), &item, models.RevisionInsert); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetItem loads a single catalog entry.
func GetItem(tx *gorm.DB, id uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := tx.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Entity: "inventory item", ID: id}
		}
		return nil, err
	}
	return &item, nil
}

// UpdateItem patches a catalog entry. A total stock change shifts available
// stock by the same delta so the committed quantity is preserved.
func UpdateItem(tx *gorm.DB, id uint, in *UpdateInventoryItem) (*models.InventoryItem, error) {
	item, err := GetItem(forUpdate(tx), id)
	if err != nil {
		return nil, err
	}

	if in.NameGujarati != nil {
		item.NameGujarati = *in.NameGujarati
	}
	if in.NameEnglish != nil {
		item.NameEnglish = *in.NameEnglish
	}
	if in.DefaultRate != nil {
		item.DefaultRate = *in.DefaultRate
	}
	if in.Category != nil {
		item.Category = models.ParseItemCategory(*in.Category)
	}
	if in.Active != nil {
		item.Active = *in.Active
	}
	if in.TotalStock != nil {
		delta := *in.TotalStock - item.TotalStock
		item.TotalStock = *in.TotalStock
		item.AvailableStock += delta
	}

	if err := tx.Save(item).Error; err != nil {
		return nil, err
	}
	if err := RecordInventoryItemRevision(tx, actorOf(tx), item, models.RevisionUpdate); err != nil {
		return nil, err
	}
	return item, nil
}

// ListItems returns the catalog in display order, each entry annotated with
// its pending dispatch quantity over non-terminal orders.
func ListItems(tx *gorm.DB) ([]InventoryItemView, error) {
	var items []models.InventoryItem
	if err := tx.Order("display_order ASC").Find(&items).Error; err != nil {
		return nil, err
	}

	pending, err := PendingCounts(tx)
	if err != nil {
		return nil, err
	}

	views := make([]InventoryItemView, 0, len(items))
	for _, it := range items {
		v := InventoryItemView{InventoryItem: it}
		if p, ok := pending[it.ID]; ok {
			v.PendingDispatchQty = p.Booked - p.Dispatched
		}
		views = append(views, v)
	}
	return views, nil
}

// SearchItems does a case-insensitive substring match on either name.
func SearchItems(tx *gorm.DB, query string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	pattern := "%" + query + "%"
	err := tx.Where("LOWER(name_english) LIKE LOWER(?) OR LOWER(name_gujarati) LIKE LOWER(?)", pattern, pattern).
		Order("display_order ASC").
		Find(&items).Error
	return items, err
}

// ReorderItems assigns display order by position in the given id list.
func ReorderItems(tx *gorm.DB, itemIDs []uint) error {
	for idx, id := range itemIDs {
		res := tx.Model(&models.InventoryItem{}).Where("id = ?", id).Update("display_order", idx)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return &apperr.NotFoundError{Entity: "inventory item", ID: id}
		}
	}
	return nil
}

// PendingCounts aggregates booked/dispatched/returned per item over
// non-terminal orders.
func PendingCounts(tx *gorm.DB) (map[uint]ItemPendingCounts, error) {
	var rows []ItemPendingCounts
	err := tx.Model(&models.RentalOrderItem{}).
		Select("rental_order_items.inventory_item_id, "+
			"COALESCE(SUM(rental_order_items.booked_qty), 0) AS booked, "+
			"COALESCE(SUM(rental_order_items.dispatched_qty), 0) AS dispatched, "+
			"COALESCE(SUM(rental_order_items.returned_qty), 0) AS returned").
		Joins("JOIN rental_orders ON rental_orders.id = rental_order_items.rental_order_id").
		Where("rental_orders.status NOT IN ?", models.TerminalStatuses).
		Group("rental_order_items.inventory_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint]ItemPendingCounts, len(rows))
	for _, r := range rows {
		out[r.InventoryItemID] = r
	}
	return out, nil
}

// GetItemUsage lists the active order lines holding stock of one item.
func GetItemUsage(tx *gorm.DB, itemID uint) ([]ItemUsage, error) {
	var lines []models.RentalOrderItem
	err := tx.
		Joins("JOIN rental_orders ON rental_orders.id = rental_order_items.rental_order_id").
		Where("rental_order_items.inventory_item_id = ?", itemID).
		Where("rental_orders.status NOT IN ?", models.TerminalStatuses).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}

	usage := make([]ItemUsage, 0, len(lines))
	for _, l := range lines {
		var order models.RentalOrder
		if err := tx.Preload("Customer").First(&order, l.RentalOrderID).Error; err != nil {
			return nil, err
		}
		usage = append(usage, ItemUsage{
			CustomerID:         order.CustomerID,
			CustomerName:       order.Customer.Name,
			OrderNumber:        order.OrderNumber,
			BookedQty:          l.BookedQty,
			DispatchedQty:      l.DispatchedQty,
			ReturnedQty:        l.ReturnedQty,
			PendingDispatchQty: l.BookedQty - l.DispatchedQty,
			PendingReturnQty:   l.DispatchedQty - l.ReturnedQty,
		})
	}
	return usage, nil
}
