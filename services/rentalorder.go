package services

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mandap-backend/apperr"
	"mandap-backend/config"
	"mandap-backend/models"
)

// BookingLine is one requested order line.
type BookingLine struct {
	InventoryItemID uint `json:"inventory_item_id" validate:"required"`
	BookedQty       int  `json:"booked_qty" validate:"gt=0"`
}

// NewRentalOrder is the booking payload.
type NewRentalOrder struct {
	CustomerID         uint          `json:"customer_id" validate:"required"`
	OrderDate          *time.Time    `json:"order_date"`
	ExpectedReturnDate *time.Time    `json:"expected_return_date"`
	Remarks            string        `json:"remarks"`
	Items              []BookingLine `json:"items" validate:"required,min=1,dive"`
}

// UpdateRentalOrder replaces the header fields and merges the line list.
type UpdateRentalOrder struct {
	OrderDate          *time.Time    `json:"order_date"`
	ExpectedReturnDate *time.Time    `json:"expected_return_date"`
	Remarks            string        `json:"remarks"`
	Items              []BookingLine `json:"items" validate:"omitempty,dive"`
}

// VoucherLine is one dispatched or returned chunk of an item.
type VoucherLine struct {
	InventoryItemID uint `json:"inventory_item_id" validate:"required"`
	Quantity        int  `json:"quantity"`
}

// Voucher is a dispatch or return request; the kind is fixed by the endpoint.
type Voucher struct {
	VoucherNumber string        `json:"voucher_number"`
	VehicleNumber string        `json:"vehicle_number"`
	Items         []VoucherLine `json:"items" validate:"required,min=1,dive"`
}

// committedForItem sums booked-minus-returned over non-terminal orders for one
// inventory item, optionally treating one order as an outsider.
func committedForItem(tx *gorm.DB, itemID, excludeOrderID uint) (int, error) {
	q := tx.Model(&models.RentalOrderItem{}).
		Joins("JOIN rental_orders ON rental_orders.id = rental_order_items.rental_order_id").
		Where("rental_order_items.inventory_item_id = ?", itemID).
		Where("rental_orders.status NOT IN ?", models.TerminalStatuses)
	if excludeOrderID != 0 {
		q = q.Where("rental_orders.id <> ?", excludeOrderID)
	}
	var committed int
	err := q.Select("COALESCE(SUM(rental_order_items.booked_qty - rental_order_items.returned_qty), 0)").
		Scan(&committed).Error
	return committed, err
}

func today() time.Time {
	y, m, d := time.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// GetOrder loads an order with its lines, transactions and customer.
func GetOrder(tx *gorm.DB, id uint) (*models.RentalOrder, error) {
	var order models.RentalOrder
	err := tx.Preload("Items.InventoryItem").
		Preload("Transactions.Items").
		Preload("Customer.PalNumbers").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Entity: "rental order", ID: id}
		}
		return nil, err
	}
	return &order, nil
}

// CreateBooking reserves items for a customer. The reservation is implicit:
// available stock is untouched, ATP is enforced against committed quantities
// under a per-item row lock.
func CreateBooking(tx *gorm.DB, in *NewRentalOrder) (*models.RentalOrder, error) {
	customer, err := GetCustomer(tx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	// Source-of-truth rule: any prior order for the customer, terminal or not,
	// blocks a new booking.
	var existing int64
	if err := tx.Model(&models.RentalOrder{}).
		Where("customer_id = ?", customer.ID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, &apperr.ConflictError{Reason: "customer already has a rental order; edit the existing order"}
	}

	seen := map[uint]bool{}
	for _, line := range in.Items {
		if seen[line.InventoryItemID] {
			return nil, &apperr.BadInputError{Field: "items", Reason: "duplicate line for one inventory item"}
		}
		seen[line.InventoryItemID] = true

		item, err := GetItem(forUpdate(tx), line.InventoryItemID)
		if err != nil {
			return nil, err
		}
		committed, err := committedForItem(tx, item.ID, 0)
		if err != nil {
			return nil, err
		}
		if line.BookedQty > item.TotalStock-committed {
			return nil, &apperr.InsufficientStockError{
				ItemID:     item.ID,
				ItemName:   item.NameEnglish,
				TotalStock: item.TotalStock,
				Committed:  committed,
				Requested:  line.BookedQty,
			}
		}
	}

	orderDate := today()
	if in.OrderDate != nil {
		orderDate = *in.OrderDate
	}

	// The advisory lock prevents duplicate numbers on Postgres; dialects
	// without it rely on the unique index and a re-read retry.
	var order models.RentalOrder
	for attempt := 0; ; attempt++ {
		number, err := NextOrderNumber(tx)
		if err != nil {
			return nil, err
		}
		order = models.RentalOrder{
			OrderNumber:        number,
			CustomerID:         customer.ID,
			OrderDate:          orderDate,
			ExpectedReturnDate: in.ExpectedReturnDate,
			Status:             models.StatusBooked,
			Remarks:            in.Remarks,
			CreatedBy:          actorOf(tx),
		}
		for _, line := range in.Items {
			order.Items = append(order.Items, models.RentalOrderItem{
				InventoryItemID: line.InventoryItemID,
				BookedQty:       line.BookedQty,
			})
		}
		err = tx.Create(&order).Error
		if err == nil {
			break
		}
		if !IsDuplicateNumber(err) {
			return nil, err
		}
		if attempt >= 2 {
			return nil, &apperr.ConflictError{Reason: "could not allocate a unique order number"}
		}
	}

	created, err := GetOrder(tx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := RecordRentalOrderRevision(tx, actorOf(tx), created, models.RevisionInsert); err != nil {
		return nil, err
	}
	config.GetLogger().WithFields(logrus.Fields{
		"order_number": created.OrderNumber,
		"customer_id":  created.CustomerID,
		"lines":        len(created.Items),
	}).Info("booking created")
	return created, nil
}

// ModifyOrder edits header fields and merges the line list: existing lines may
// grow or shrink (never below dispatched), new lines pass ATP, and lines
// missing from the request are removed if nothing was dispatched on them.
func ModifyOrder(tx *gorm.DB, id uint, in *UpdateRentalOrder) (*models.RentalOrder, error) {
	order, err := GetOrder(tx, id)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, &apperr.InvalidStateTransitionError{
			From: string(order.Status), To: string(order.Status), EntityID: order.ID,
		}
	}

	if in.OrderDate != nil {
		order.OrderDate = *in.OrderDate
	}
	order.ExpectedReturnDate = in.ExpectedReturnDate
	order.Remarks = in.Remarks

	if in.Items != nil {
		requested := map[uint]bool{}
		for _, line := range in.Items {
			requested[line.InventoryItemID] = true

			item, err := GetItem(forUpdate(tx), line.InventoryItemID)
			if err != nil {
				return nil, err
			}

			var existing *models.RentalOrderItem
			for i := range order.Items {
				if order.Items[i].InventoryItemID == item.ID {
					existing = &order.Items[i]
					break
				}
			}

			committedByOthers, err := committedForItem(tx, item.ID, order.ID)
			if err != nil {
				return nil, err
			}

			if existing != nil {
				if line.BookedQty < existing.DispatchedQty {
					return nil, &apperr.InvariantViolationError{
						Rule:    "booked quantity cannot go below dispatched quantity",
						Context: item.NameEnglish,
					}
				}
				// Committed after the edit: others plus my new booking net of
				// what I already returned.
				if committedByOthers+(line.BookedQty-existing.ReturnedQty) > item.TotalStock {
					return nil, &apperr.InsufficientStockError{
						ItemID:     item.ID,
						ItemName:   item.NameEnglish,
						TotalStock: item.TotalStock,
						Committed:  committedByOthers,
						Requested:  line.BookedQty,
					}
				}
				existing.BookedQty = line.BookedQty
				if err := tx.Save(existing).Error; err != nil {
					return nil, err
				}
			} else {
				if committedByOthers+line.BookedQty > item.TotalStock {
					return nil, &apperr.InsufficientStockError{
						ItemID:     item.ID,
						ItemName:   item.NameEnglish,
						TotalStock: item.TotalStock,
						Committed:  committedByOthers,
						Requested:  line.BookedQty,
					}
				}
				newLine := models.RentalOrderItem{
					RentalOrderID:   order.ID,
					InventoryItemID: item.ID,
					BookedQty:       line.BookedQty,
				}
				if err := tx.Create(&newLine).Error; err != nil {
					return nil, err
				}
			}
		}

		for i := range order.Items {
			if requested[order.Items[i].InventoryItemID] {
				continue
			}
			if order.Items[i].DispatchedQty > 0 {
				return nil, &apperr.InvariantViolationError{
					Rule:    "cannot remove a line that has been dispatched",
					Context: order.Items[i].InventoryItem.NameEnglish,
				}
			}
			if err := tx.Delete(&models.RentalOrderItem{}, order.Items[i].ID).Error; err != nil {
				return nil, err
			}
		}
	}

	if order.BillID != nil {
		order.BillOutOfSync = true
	}
	if err := tx.Omit("Items", "Transactions", "Customer").Save(order).Error; err != nil {
		return nil, err
	}

	updated, err := GetOrder(tx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := RecordRentalOrderRevision(tx, actorOf(tx), updated, models.RevisionUpdate); err != nil {
		return nil, err
	}
	return updated, nil
}

// DispatchItems sends a voucher of items out: available stock drops, line
// counters advance, and the chunk is recorded as an append-only transaction.
func DispatchItems(tx *gorm.DB, orderID uint, voucher *Voucher) (*models.RentalOrder, error) {
	order, err := GetOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.StatusBooked, models.StatusDispatched, models.StatusPartiallyReturned:
	default:
		return nil, &apperr.InvalidStateTransitionError{
			From: string(order.Status), To: string(models.StatusDispatched), EntityID: order.ID,
		}
	}

	dispatchDate := today()
	transaction := models.RentalOrderTransaction{
		RentalOrderID:   order.ID,
		Type:            models.TransactionDispatch,
		VoucherNumber:   voucher.VoucherNumber,
		VehicleNumber:   voucher.VehicleNumber,
		TransactionDate: dispatchDate,
	}

	for _, vl := range voucher.Items {
		if vl.Quantity <= 0 {
			continue
		}

		var line *models.RentalOrderItem
		for i := range order.Items {
			if order.Items[i].InventoryItemID == vl.InventoryItemID {
				line = &order.Items[i]
				break
			}
		}
		if line == nil {
			return nil, &apperr.NotFoundError{Entity: "order line", ID: vl.InventoryItemID}
		}

		if vl.Quantity > line.BookedQty-line.DispatchedQty {
			return nil, &apperr.InvariantViolationError{
				Rule:    "cannot dispatch more than the booked quantity",
				Context: line.InventoryItem.NameEnglish,
			}
		}

		item, err := GetItem(forUpdate(tx), vl.InventoryItemID)
		if err != nil {
			return nil, err
		}
		if vl.Quantity > item.AvailableStock {
			return nil, &apperr.InsufficientStockError{
				ItemID:     item.ID,
				ItemName:   item.NameEnglish,
				TotalStock: item.TotalStock,
				Committed:  item.TotalStock - item.AvailableStock,
				Requested:  vl.Quantity,
			}
		}

		item.AvailableStock -= vl.Quantity
		if err := tx.Save(item).Error; err != nil {
			return nil, err
		}

		line.DispatchedQty += vl.Quantity
		line.DispatchDate = &dispatchDate
		if err := tx.Save(line).Error; err != nil {
			return nil, err
		}

		transaction.Items = append(transaction.Items, models.RentalOrderTransactionItem{
			InventoryItemID: item.ID,
			Quantity:        vl.Quantity,
		})
	}

	if err := tx.Create(&transaction).Error; err != nil {
		return nil, err
	}

	order.DispatchDate = &dispatchDate
	order.Status = models.StatusDispatched
	if err := tx.Omit("Items", "Transactions", "Customer").Save(order).Error; err != nil {
		return nil, err
	}

	updated, err := GetOrder(tx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := RecordRentalOrderRevision(tx, actorOf(tx), updated, models.RevisionUpdate); err != nil {
		return nil, err
	}
	config.GetLogger().WithFields(logrus.Fields{
		"order_number": updated.OrderNumber,
		"voucher":      voucher.VoucherNumber,
	}).Info("items dispatched")
	return updated, nil
}

// ReceiveItems takes a voucher of items back: available stock rises, line
// counters advance, and the order moves to RETURNED once every line is fully
// back.
func ReceiveItems(tx *gorm.DB, orderID uint, voucher *Voucher) (*models.RentalOrder, error) {
	order, err := GetOrder(tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusDispatched && order.Status != models.StatusPartiallyReturned {
		return nil, &apperr.InvalidStateTransitionError{
			From: string(order.Status), To: string(models.StatusReturned), EntityID: order.ID,
		}
	}

	returnDate := today()
	transaction := models.RentalOrderTransaction{
		RentalOrderID:   order.ID,
		Type:            models.TransactionReturn,
		VoucherNumber:   voucher.VoucherNumber,
		VehicleNumber:   voucher.VehicleNumber,
		TransactionDate: returnDate,
	}

	for _, vl := range voucher.Items {
		if vl.Quantity <= 0 {
			continue
		}

		var line *models.RentalOrderItem
		for i := range order.Items {
			if order.Items[i].InventoryItemID == vl.InventoryItemID {
				line = &order.Items[i]
				break
			}
		}
		if line == nil {
			return nil, &apperr.NotFoundError{Entity: "order line", ID: vl.InventoryItemID}
		}

		if vl.Quantity > line.OutstandingQty() {
			return nil, &apperr.InvariantViolationError{
				Rule:    "cannot return more than the outstanding quantity",
				Context: line.InventoryItem.NameEnglish,
			}
		}

		item, err := GetItem(forUpdate(tx), vl.InventoryItemID)
		if err != nil {
			return nil, err
		}
		item.AvailableStock += vl.Quantity
		if err := tx.Save(item).Error; err != nil {
			return nil, err
		}

		line.ReturnedQty += vl.Quantity
		line.ReturnDate = &returnDate
		if err := tx.Save(line).Error; err != nil {
			return nil, err
		}

		transaction.Items = append(transaction.Items, models.RentalOrderTransactionItem{
			InventoryItemID: item.ID,
			Quantity:        vl.Quantity,
		})
	}

	if err := tx.Create(&transaction).Error; err != nil {
		return nil, err
	}

	allReturned := true
	for i := range order.Items {
		if order.Items[i].DispatchedQty > order.Items[i].ReturnedQty {
			allReturned = false
			break
		}
	}

	order.ActualReturnDate = &returnDate
	if allReturned {
		order.Status = models.StatusReturned
	} else {
		order.Status = models.StatusPartiallyReturned
	}
	if err := tx.Omit("Items", "Transactions", "Customer").Save(order).Error; err != nil {
		return nil, err
	}

	updated, err := GetOrder(tx, order.ID)
	if err != nil {
		return nil, err
	}
	if err := RecordRentalOrderRevision(tx, actorOf(tx), updated, models.RevisionUpdate); err != nil {
		return nil, err
	}
	config.GetLogger().WithFields(logrus.Fields{
		"order_number": updated.OrderNumber,
		"status":       updated.Status,
	}).Info("items received")
	return updated, nil
}

// CancelOrder voids a booking that never left the yard and has no bill.
func CancelOrder(tx *gorm.DB, id uint) (*models.RentalOrder, error) {
	order, err := GetOrder(tx, id)
	if err != nil {
		return nil, err
	}
	if order.BillID != nil {
		return nil, &apperr.ConflictError{Reason: "cannot cancel: a bill has already been generated"}
	}
	if order.AnyDispatched() {
		return nil, &apperr.InvariantViolationError{
			Rule:    "cannot cancel an order with dispatched items",
			Context: order.OrderNumber,
		}
	}
	if order.Status != models.StatusBooked {
		return nil, &apperr.InvalidStateTransitionError{
			From: string(order.Status), To: string(models.StatusCancelled), EntityID: order.ID,
		}
	}

	order.Status = models.StatusCancelled
	if err := tx.Omit("Items", "Transactions", "Customer").Save(order).Error; err != nil {
		return nil, err
	}
	if err := RecordRentalOrderRevision(tx, actorOf(tx), order, models.RevisionUpdate); err != nil {
		return nil, err
	}
	config.GetLogger().WithField("order_number", order.OrderNumber).Info("order cancelled")
	return order, nil
}

// DeleteOrder removes an order and everything it owns. Blocked once a bill is
// linked or any item was dispatched; cancel exists for record keeping.
func DeleteOrder(tx *gorm.DB, id uint) error {
	order, err := GetOrder(tx, id)
	if err != nil {
		return err
	}
	if order.BillID != nil {
		return &apperr.DeletionBlockedError{Reason: "a bill has been generated for this order; delete the bill first"}
	}
	if order.AnyDispatched() {
		return &apperr.DeletionBlockedError{Reason: "items were dispatched on this order; cancel instead"}
	}

	txnIDs := tx.Model(&models.RentalOrderTransaction{}).
		Select("id").Where("rental_order_id = ?", id)
	if err := tx.Where("transaction_id IN (?)", txnIDs).
		Delete(&models.RentalOrderTransactionItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("rental_order_id = ?", id).
		Delete(&models.RentalOrderTransaction{}).Error; err != nil {
		return err
	}
	if err := tx.Where("rental_order_id = ?", id).
		Delete(&models.RentalOrderItem{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.RentalOrder{}, id).Error; err != nil {
		return err
	}
	config.GetLogger().WithField("order_number", order.OrderNumber).Warn("order deleted")
	return nil
}

// ListOrders returns every order, newest first.
func ListOrders(tx *gorm.DB) ([]models.RentalOrder, error) {
	var orders []models.RentalOrder
	err := tx.Preload("Items.InventoryItem").
		Preload("Customer.PalNumbers").
		Order("order_date DESC").
		Find(&orders).Error
	return orders, err
}

// ActiveOrders returns non-terminal orders, newest first.
func ActiveOrders(tx *gorm.DB) ([]models.RentalOrder, error) {
	var orders []models.RentalOrder
	err := tx.Preload("Items.InventoryItem").
		Preload("Customer.PalNumbers").
		Where("status NOT IN ?", models.TerminalStatuses).
		Order("order_date DESC").
		Find(&orders).Error
	return orders, err
}

// UnreturnedOrdersByCustomer lists the customer's orders still holding stock.
func UnreturnedOrdersByCustomer(tx *gorm.DB, customerID uint) ([]models.RentalOrder, error) {
	var orders []models.RentalOrder
	err := tx.Preload("Items.InventoryItem").
		Where("customer_id = ?", customerID).
		Where("status IN ?", []models.RentalOrderStatus{models.StatusDispatched, models.StatusPartiallyReturned}).
		Order("order_date DESC").
		Find(&orders).Error
	return orders, err
}

// UnreturnedItemsByCustomer lists the customer's lines with outstanding stock.
func UnreturnedItemsByCustomer(tx *gorm.DB, customerID uint) ([]models.RentalOrderItem, error) {
	var lines []models.RentalOrderItem
	err := tx.Preload("InventoryItem").
		Joins("JOIN rental_orders ON rental_orders.id = rental_order_items.rental_order_id").
		Where("rental_orders.customer_id = ?", customerID).
		Where("rental_orders.status IN ?", []models.RentalOrderStatus{models.StatusDispatched, models.StatusPartiallyReturned}).
		Where("rental_order_items.dispatched_qty > rental_order_items.returned_qty").
		Find(&lines).Error
	return lines, err
}
