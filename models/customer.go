package models

import "time"

// Customer is soft-deleted via Active=false so historical orders and bills
// keep their reference.
type Customer struct {
	ID               uint                `json:"id" gorm:"primaryKey"`
	Name             string              `json:"name" gorm:"size:200;not null"`
	Mobile           string              `json:"mobile" gorm:"size:20;not null"`
	AlternateContact string              `json:"alternate_contact" gorm:"size:20"`
	Address          string              `json:"address" gorm:"size:500"`
	Notes            string              `json:"notes" gorm:"size:500"`
	Active           bool                `json:"active"`
	PalNumbers       []CustomerPalNumber `json:"-" gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// CustomerPalNumber is one pal number owned by a customer. Pal numbers are
// globally unique across customers.
type CustomerPalNumber struct {
	ID         uint   `json:"-" gorm:"primaryKey"`
	CustomerID uint   `json:"-" gorm:"index;not null"`
	PalNumber  string `json:"pal_number" gorm:"size:50;uniqueIndex;not null"`
}

// PalNumberList returns the pal numbers as plain strings.
func (c *Customer) PalNumberList() []string {
	out := make([]string, 0, len(c.PalNumbers))
	for _, p := range c.PalNumbers {
		out = append(out, p.PalNumber)
	}
	return out
}
