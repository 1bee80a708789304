package models

import "time"

type RentalOrderStatus string

const (
	StatusBooked            RentalOrderStatus = "BOOKED"
	StatusDispatched        RentalOrderStatus = "DISPATCHED"
	StatusPartiallyReturned RentalOrderStatus = "PARTIALLY_RETURNED"
	StatusReturned          RentalOrderStatus = "RETURNED"
	StatusCompleted         RentalOrderStatus = "COMPLETED"
	StatusCancelled         RentalOrderStatus = "CANCELLED"
)

// TerminalStatuses are the states from which no further engine transition is
// accepted. Orders in these states no longer commit stock.
var TerminalStatuses = []RentalOrderStatus{StatusCompleted, StatusCancelled}

type TransactionType string

const (
	TransactionDispatch TransactionType = "DISPATCH"
	TransactionReturn   TransactionType = "RETURN"
)

// RentalOrder is the booking -> dispatch -> return lifecycle aggregate.
// BillID is a weak reference; the bill and the order may each exist alone.
type RentalOrder struct {
	ID                 uint                     `json:"id" gorm:"primaryKey"`
	OrderNumber        string                   `json:"order_number" gorm:"size:20;unique;not null"`
	CustomerID         uint                     `json:"customer_id" gorm:"index;not null"`
	Customer           Customer                 `json:"-" gorm:"foreignKey:CustomerID"`
	OrderDate          time.Time                `json:"order_date" gorm:"not null"`
	DispatchDate       *time.Time               `json:"dispatch_date"`
	ExpectedReturnDate *time.Time               `json:"expected_return_date"`
	ActualReturnDate   *time.Time               `json:"actual_return_date"`
	Status             RentalOrderStatus        `json:"status" gorm:"size:20;not null"`
	BillID             *uint                    `json:"bill_id" gorm:"index"`
	BillOutOfSync      bool                     `json:"bill_out_of_sync"`
	Remarks            string                   `json:"remarks" gorm:"size:500"`
	Items              []RentalOrderItem        `json:"items" gorm:"foreignKey:RentalOrderID;constraint:OnDelete:CASCADE"`
	Transactions       []RentalOrderTransaction `json:"transactions" gorm:"foreignKey:RentalOrderID;constraint:OnDelete:CASCADE"`
	CreatedBy          string                   `json:"created_by" gorm:"size:100"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// IsTerminal reports whether the order accepts no further transitions.
func (o *RentalOrder) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// AnyDispatched reports whether any line has left the yard.
func (o *RentalOrder) AnyDispatched() bool {
	for i := range o.Items {
		if o.Items[i].DispatchedQty > 0 {
			return true
		}
	}
	return false
}

// RentalOrderItem is one line of an order; at most one line per inventory
// item. Counters obey 0 <= returned <= dispatched <= booked.
type RentalOrderItem struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	RentalOrderID   uint          `json:"rental_order_id" gorm:"uniqueIndex:idx_order_line_item,priority:1;not null"`
	InventoryItemID uint          `json:"inventory_item_id" gorm:"uniqueIndex:idx_order_line_item,priority:2;index;not null"`
	InventoryItem   InventoryItem `json:"-" gorm:"foreignKey:InventoryItemID"`
	BookedQty       int           `json:"booked_qty" gorm:"not null"`
	DispatchedQty   int           `json:"dispatched_qty"`
	ReturnedQty     int           `json:"returned_qty"`
	DispatchDate    *time.Time    `json:"dispatch_date"`
	ReturnDate      *time.Time    `json:"return_date"`
}

// OutstandingQty is what is dispatched but not yet back.
func (i *RentalOrderItem) OutstandingQty() int {
	return i.DispatchedQty - i.ReturnedQty
}

// RentalOrderTransaction is one dispatch or return voucher; append-only.
type RentalOrderTransaction struct {
	ID              uint                         `json:"id" gorm:"primaryKey"`
	RentalOrderID   uint                         `json:"rental_order_id" gorm:"index;not null"`
	Type            TransactionType              `json:"type" gorm:"size:10;not null"`
	VoucherNumber   string                       `json:"voucher_number" gorm:"size:50"`
	VehicleNumber   string                       `json:"vehicle_number" gorm:"size:50"`
	TransactionDate time.Time                    `json:"transaction_date" gorm:"not null"`
	Items           []RentalOrderTransactionItem `json:"items" gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time                    `json:"created_at"`
}

type RentalOrderTransactionItem struct {
	ID              uint `json:"id" gorm:"primaryKey"`
	TransactionID   uint `json:"transaction_id" gorm:"index;not null"`
	InventoryItemID uint `json:"inventory_item_id" gorm:"not null"`
	Quantity        int  `json:"quantity" gorm:"not null"`
}
