package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BillType string

const (
	BillTypeEstimate BillType = "ESTIMATE"
	BillTypeInvoice  BillType = "INVOICE"
)

type PaymentStatus string

const (
	PaymentStatusDue     PaymentStatus = "DUE"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Bill is a line-itemised bill with a payments sub-ledger. At most one bill
// per customer exists at a time (enforced in the bill service).
type Bill struct {
	ID                 uint            `json:"id" gorm:"primaryKey"`
	BillNumber         string          `json:"bill_number" gorm:"size:20;unique;not null"`
	CustomerID         uint            `json:"customer_id" gorm:"index;not null"`
	Customer           Customer        `json:"-" gorm:"foreignKey:CustomerID"`
	PalNumbers         string          `json:"pal_numbers" gorm:"size:50;default:'1'"`
	BillType           BillType        `json:"bill_type" gorm:"size:10"`
	PaymentStatus      PaymentStatus   `json:"payment_status" gorm:"size:10"`
	TotalAmount        decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	Deposit            decimal.Decimal `json:"deposit" gorm:"type:numeric(12,2)"`
	SettlementDiscount decimal.Decimal `json:"settlement_discount" gorm:"type:numeric(12,2)"`
	NetPayable         decimal.Decimal `json:"net_payable" gorm:"type:numeric(12,2)"`
	BillDate           time.Time       `json:"bill_date" gorm:"not null"`
	Remarks            string          `json:"remarks" gorm:"size:500"`
	Items              []BillItem      `json:"items" gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
	Payments           []Payment       `json:"payments" gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE"`
	CreatedBy          string          `json:"created_by" gorm:"size:100"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Recalculate derives totals, deposit, net payable and payment status from the
// loaded items and payments. Callers persist the bill afterwards.
func (b *Bill) Recalculate() {
	total := decimal.Zero
	for i := range b.Items {
		total = total.Add(b.Items[i].Total)
	}

	paid := decimal.Zero
	deposit := decimal.Zero
	for i := range b.Payments {
		paid = paid.Add(b.Payments[i].Amount)
		if b.Payments[i].IsDeposit {
			deposit = b.Payments[i].Amount
		}
	}

	b.TotalAmount = total
	b.Deposit = deposit
	b.NetPayable = total.Sub(deposit).Sub(b.SettlementDiscount)

	payable := total.Sub(b.SettlementDiscount)
	switch {
	case paid.GreaterThanOrEqual(payable):
		b.PaymentStatus = PaymentStatusPaid
	case paid.GreaterThan(decimal.Zero):
		b.PaymentStatus = PaymentStatusPartial
	default:
		b.PaymentStatus = PaymentStatusDue
	}
}

// ToBeReturned is the over-deposit amount owed back to the customer.
func (b *Bill) ToBeReturned() decimal.Decimal {
	if b.NetPayable.IsNegative() {
		return b.NetPayable.Neg()
	}
	return decimal.Zero
}

// DepositPayment returns the deposit payment row, if any.
func (b *Bill) DepositPayment() *Payment {
	for i := range b.Payments {
		if b.Payments[i].IsDeposit {
			return &b.Payments[i]
		}
	}
	return nil
}

// BillItem is one bill line; exactly one of ItemID / CustomItemName is set.
type BillItem struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	BillID         uint            `json:"bill_id" gorm:"index;not null"`
	ItemID         *uint           `json:"item_id"`
	Item           *InventoryItem  `json:"-" gorm:"foreignKey:ItemID"`
	IsCustomItem   bool            `json:"is_custom_item"`
	CustomItemName string          `json:"custom_item_name" gorm:"size:200"`
	IsLostItem     bool            `json:"is_lost_item"`
	Quantity       int             `json:"quantity" gorm:"not null"`
	Rate           decimal.Decimal `json:"rate" gorm:"type:numeric(12,2)"`
	Total          decimal.Decimal `json:"total" gorm:"type:numeric(12,2)"`
}
