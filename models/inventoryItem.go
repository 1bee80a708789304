package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ItemCategory string

const (
	CategoryMandap        ItemCategory = "MANDAP"
	CategoryFurniture     ItemCategory = "FURNITURE"
	CategoryBedding       ItemCategory = "BEDDING"
	CategoryKitchen       ItemCategory = "KITCHEN"
	CategoryUtensils      ItemCategory = "UTENSILS"
	CategoryDecoration    ItemCategory = "DECORATION"
	CategoryMiscellaneous ItemCategory = "MISCELLANEOUS"
)

// ParseItemCategory maps a raw category string to a known category.
// Unknown values fall back to MANDAP.
func ParseItemCategory(s string) ItemCategory {
	switch ItemCategory(s) {
	case CategoryMandap, CategoryFurniture, CategoryBedding, CategoryKitchen,
		CategoryUtensils, CategoryDecoration, CategoryMiscellaneous:
		return ItemCategory(s)
	default:
		return CategoryMandap
	}
}

// InventoryItem is a rentable catalog entry. AvailableStock tracks physical
// presence on the yard; reservations are implicit via active order lines.
type InventoryItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	NameGujarati   string          `json:"name_gujarati" gorm:"size:200"`
	NameEnglish    string          `json:"name_english" gorm:"size:200;not null"`
	DefaultRate    decimal.Decimal `json:"default_rate" gorm:"type:numeric(12,2)"`
	Category       ItemCategory    `json:"category" gorm:"size:20"`
	DisplayOrder   int             `json:"display_order"`
	Active         bool            `json:"active"`
	TotalStock     int             `json:"total_stock"`
	AvailableStock int             `json:"available_stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
