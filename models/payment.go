package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCheque PaymentMethod = "CHEQUE"
	PaymentOnline PaymentMethod = "ONLINE"
)

// ParsePaymentMethod defaults unknown methods to CASH, matching how payments
// are recorded at the counter.
func ParsePaymentMethod(s string) PaymentMethod {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentCheque, PaymentOnline:
		return PaymentMethod(s)
	default:
		return PaymentCash
	}
}

// Payment is one entry in a bill's payments sub-ledger. At most one payment
// per bill carries IsDeposit=true.
type Payment struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	BillID        uint            `json:"bill_id" gorm:"index;not null"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2)"`
	PaymentDate   time.Time       `json:"payment_date" gorm:"not null"`
	PaymentMethod PaymentMethod   `json:"payment_method" gorm:"size:10"`
	ChequeNumber  string          `json:"cheque_number" gorm:"size:50"`
	Remarks       string          `json:"remarks" gorm:"size:255"`
	IsDeposit     bool            `json:"is_deposit"`
	CreatedBy     string          `json:"created_by" gorm:"size:100"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
