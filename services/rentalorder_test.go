package services

import (
	"errors"
	"testing"

	"mandap-backend/apperr"
	"mandap-backend/models"
)

func TestBookingLifecycle(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Ramesh", "9000000001")
	chairs := mustItem(t, tx, "Chairs", 100, 5)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: chairs.ID, BookedQty: 50})
	if order.Status != models.StatusBooked {
		t.Fatalf("status = %s, want BOOKED", order.Status)
	}
	// Booking reserves implicitly; available stock is untouched.
	if got := reloadItem(t, tx, chairs.ID).AvailableStock; got != 100 {
		t.Fatalf("available after booking = %d, want 100", got)
	}

	order, err := DispatchItems(tx, order.ID, &Voucher{
		VoucherNumber: "V-1",
		Items:         []VoucherLine{{InventoryItemID: chairs.ID, Quantity: 50}},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if order.Status != models.StatusDispatched {
		t.Fatalf("status = %s, want DISPATCHED", order.Status)
	}
	if got := reloadItem(t, tx, chairs.ID).AvailableStock; got != 50 {
		t.Fatalf("available after dispatch = %d, want 50", got)
	}

	order, err = ReceiveItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: chairs.ID, Quantity: 50}},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if order.Status != models.StatusReturned {
		t.Fatalf("status = %s, want RETURNED", order.Status)
	}
	if got := reloadItem(t, tx, chairs.ID).AvailableStock; got != 100 {
		t.Fatalf("available after return = %d, want 100", got)
	}
	if len(order.Transactions) != 2 {
		t.Fatalf("transactions = %d, want 2", len(order.Transactions))
	}

	// Linking a bill completes the returned order.
	bill, err := CreateBill(tx, &NewBill{
		CustomerID:    customer.ID,
		Items:         []BillLineInput{{ItemID: &chairs.ID, Quantity: 50}},
		RentalOrderID: &order.ID,
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	order, err = GetOrder(tx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.Status != models.StatusCompleted {
		t.Fatalf("status after billing = %s, want COMPLETED", order.Status)
	}
	if order.BillID == nil || *order.BillID != bill.ID {
		t.Fatalf("order not linked to bill %d", bill.ID)
	}
}

func TestBookingRejectsOverCommit(t *testing.T) {
	tx := testDB(t)
	a := mustCustomer(t, tx, "First", "9000000001")
	b := mustCustomer(t, tx, "Second", "9000000002")
	mattress := mustItem(t, tx, "Mattress", 10, 20)

	mustBooking(t, tx, a.ID, BookingLine{InventoryItemID: mattress.ID, BookedQty: 6})

	_, err := CreateBooking(tx, &NewRentalOrder{
		CustomerID: b.ID,
		Items:      []BookingLine{{InventoryItemID: mattress.ID, BookedQty: 6}},
	})
	var stockErr *apperr.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}
	if stockErr.TotalStock != 10 || stockErr.Committed != 6 || stockErr.Requested != 6 {
		t.Fatalf("stock error = %+v, want total 10 committed 6 requested 6", stockErr)
	}
}

func TestPartialReturn(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Suresh", "9000000003")
	plates := mustItem(t, tx, "Plates", 20, 2)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: plates.ID, BookedQty: 20})
	order, err := DispatchItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: plates.ID, Quantity: 20}},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	order, err = ReceiveItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: plates.ID, Quantity: 15}},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if order.Status != models.StatusPartiallyReturned {
		t.Fatalf("status = %s, want PARTIALLY_RETURNED", order.Status)
	}
	if got := order.Items[0].OutstandingQty(); got != 5 {
		t.Fatalf("outstanding = %d, want 5", got)
	}
	if got := reloadItem(t, tx, plates.ID).AvailableStock; got != 15 {
		t.Fatalf("available = %d, want 15", got)
	}

	lines, err := UnreturnedItemsByCustomer(tx, customer.ID)
	if err != nil {
		t.Fatalf("unreturned items: %v", err)
	}
	if len(lines) != 1 || lines[0].OutstandingQty() != 5 {
		t.Fatalf("unreturned lines = %+v, want one line with outstanding 5", lines)
	}
}

func TestModifyOrderBookedBelowDispatched(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Mahesh", "9000000004")
	tables := mustItem(t, tx, "Tables", 10, 50)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: tables.ID, BookedQty: 10})
	if _, err := DispatchItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: tables.ID, Quantity: 4}},
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	_, err := ModifyOrder(tx, order.ID, &UpdateRentalOrder{
		Items: []BookingLine{{InventoryItemID: tables.ID, BookedQty: 3}},
	})
	var invErr *apperr.InvariantViolationError
	if !errors.As(err, &invErr) {
		t.Fatalf("err = %v, want InvariantViolationError", err)
	}
}

func TestModifyOrderFreesStockForOthers(t *testing.T) {
	tx := testDB(t)
	a := mustCustomer(t, tx, "Holder", "9000000005")
	b := mustCustomer(t, tx, "Waiter", "9000000006")
	drums := mustItem(t, tx, "Drums", 10, 30)

	order := mustBooking(t, tx, a.ID, BookingLine{InventoryItemID: drums.ID, BookedQty: 10})

	_, err := CreateBooking(tx, &NewRentalOrder{
		CustomerID: b.ID,
		Items:      []BookingLine{{InventoryItemID: drums.ID, BookedQty: 6}},
	})
	var stockErr *apperr.InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("err = %v, want InsufficientStockError", err)
	}

	if _, err := ModifyOrder(tx, order.ID, &UpdateRentalOrder{
		Items: []BookingLine{{InventoryItemID: drums.ID, BookedQty: 4}},
	}); err != nil {
		t.Fatalf("shrink booking: %v", err)
	}

	if _, err := CreateBooking(tx, &NewRentalOrder{
		CustomerID: b.ID,
		Items:      []BookingLine{{InventoryItemID: drums.ID, BookedQty: 6}},
	}); err != nil {
		t.Fatalf("booking after shrink: %v", err)
	}
}

func TestSecondOrderForCustomerConflicts(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Repeat", "9000000007")
	chairs := mustItem(t, tx, "Chairs", 100, 5)

	mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: chairs.ID, BookedQty: 10})

	_, err := CreateBooking(tx, &NewRentalOrder{
		CustomerID: customer.ID,
		Items:      []BookingLine{{InventoryItemID: chairs.ID, BookedQty: 5}},
	})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestDispatchMoreThanBooked(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Eager", "9000000008")
	mats := mustItem(t, tx, "Mats", 30, 3)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: mats.ID, BookedQty: 10})

	_, err := DispatchItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: mats.ID, Quantity: 11}},
	})
	var invErr *apperr.InvariantViolationError
	if !errors.As(err, &invErr) {
		t.Fatalf("err = %v, want InvariantViolationError", err)
	}
}

func TestReceiveBeforeDispatch(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Early", "9000000009")
	fans := mustItem(t, tx, "Fans", 10, 40)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: fans.ID, BookedQty: 5})

	_, err := ReceiveItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: fans.ID, Quantity: 5}},
	})
	var stateErr *apperr.InvalidStateTransitionError
	if !errors.As(err, &stateErr) {
		t.Fatalf("err = %v, want InvalidStateTransitionError", err)
	}
}

func TestReceiveMoreThanOutstanding(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Greedy", "9000000010")
	pots := mustItem(t, tx, "Pots", 10, 8)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: pots.ID, BookedQty: 8})
	if _, err := DispatchItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: pots.ID, Quantity: 5}},
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	_, err := ReceiveItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: pots.ID, Quantity: 6}},
	})
	var invErr *apperr.InvariantViolationError
	if !errors.As(err, &invErr) {
		t.Fatalf("err = %v, want InvariantViolationError", err)
	}
}

func TestCancelAfterDispatchBlocked(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Flaky", "9000000011")
	lights := mustItem(t, tx, "Lights", 10, 15)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: lights.ID, BookedQty: 4})
	if _, err := DispatchItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: lights.ID, Quantity: 2}},
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	_, err := CancelOrder(tx, order.ID)
	var invErr *apperr.InvariantViolationError
	if !errors.As(err, &invErr) {
		t.Fatalf("err = %v, want InvariantViolationError", err)
	}
}

func TestCancelReleasesCommitment(t *testing.T) {
	tx := testDB(t)
	a := mustCustomer(t, tx, "Canceller", "9000000012")
	b := mustCustomer(t, tx, "Next", "9000000013")
	stages := mustItem(t, tx, "Stage Panels", 8, 100)

	order := mustBooking(t, tx, a.ID, BookingLine{InventoryItemID: stages.ID, BookedQty: 8})
	order, err := CancelOrder(tx, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if order.Status != models.StatusCancelled {
		t.Fatalf("status = %s, want CANCELLED", order.Status)
	}

	// Cancelled orders no longer commit stock.
	if _, err := CreateBooking(tx, &NewRentalOrder{
		CustomerID: b.ID,
		Items:      []BookingLine{{InventoryItemID: stages.ID, BookedQty: 8}},
	}); err != nil {
		t.Fatalf("booking after cancel: %v", err)
	}
}

func TestDeleteOrderBlockedAfterDispatch(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Gone", "9000000014")
	rugs := mustItem(t, tx, "Rugs", 10, 12)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: rugs.ID, BookedQty: 4})
	if _, err := DispatchItems(tx, order.ID, &Voucher{
		Items: []VoucherLine{{InventoryItemID: rugs.ID, Quantity: 1}},
	}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	err := DeleteOrder(tx, order.ID)
	var blocked *apperr.DeletionBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want DeletionBlockedError", err)
	}
}

func TestDeleteBookedOrderCascades(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Clean", "9000000015")
	urns := mustItem(t, tx, "Urns", 10, 25)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: urns.ID, BookedQty: 3})
	if err := DeleteOrder(tx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := GetOrder(tx, order.ID); err == nil {
		t.Fatal("order still readable after delete")
	}
	var lines int64
	if err := tx.Model(&models.RentalOrderItem{}).
		Where("rental_order_id = ?", order.ID).Count(&lines).Error; err != nil {
		t.Fatalf("count lines: %v", err)
	}
	if lines != 0 {
		t.Fatalf("orphan lines = %d, want 0", lines)
	}
}

func TestModifyOrderMarksBillOutOfSync(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Synced", "9000000016")
	bowls := mustItem(t, tx, "Bowls", 50, 4)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: bowls.ID, BookedQty: 10})
	if _, err := CreateBill(tx, &NewBill{
		CustomerID:    customer.ID,
		Items:         []BillLineInput{{ItemID: &bowls.ID, Quantity: 10}},
		RentalOrderID: &order.ID,
	}); err != nil {
		t.Fatalf("create bill: %v", err)
	}

	order, err := ModifyOrder(tx, order.ID, &UpdateRentalOrder{
		Items: []BookingLine{{InventoryItemID: bowls.ID, BookedQty: 12}},
	})
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if !order.BillOutOfSync {
		t.Fatal("bill_out_of_sync not set after editing a billed order")
	}
}
