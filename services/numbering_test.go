package services

import (
	"fmt"
	"testing"
	"time"
)

func TestOrderNumbersMonotonic(t *testing.T) {
	tx := testDB(t)
	a := mustCustomer(t, tx, "One", "9400000001")
	b := mustCustomer(t, tx, "Two", "9400000002")
	chairs := mustItem(t, tx, "Chairs", 100, 5)

	first := mustBooking(t, tx, a.ID, BookingLine{InventoryItemID: chairs.ID, BookedQty: 1})
	second := mustBooking(t, tx, b.ID, BookingLine{InventoryItemID: chairs.ID, BookedQty: 1})

	prefix := OrderNumberPrefix(time.Now().Year())
	if want := prefix + "0001"; first.OrderNumber != want {
		t.Fatalf("first order number = %s, want %s", first.OrderNumber, want)
	}
	if want := prefix + "0002"; second.OrderNumber != want {
		t.Fatalf("second order number = %s, want %s", second.OrderNumber, want)
	}
}

func TestBillNumberFormat(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Billed", "9400000003")

	bill, err := CreateBill(tx, &NewBill{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	want := BillNumberPrefix(time.Now().Year()) + "001"
	if bill.BillNumber != want {
		t.Fatalf("bill number = %s, want %s", bill.BillNumber, want)
	}
}

func TestNextNumberContinuesFromGreatestSuffix(t *testing.T) {
	tx := testDB(t)
	prefix := OrderNumberPrefix(time.Now().Year())

	// Seed a gap: the allocator continues from the greatest stored suffix.
	seed := fmt.Sprintf("%s%04d", prefix, 41)
	if err := tx.Exec(
		`INSERT INTO rental_orders (order_number, customer_id, order_date, status) VALUES (?, 1, ?, 'CANCELLED')`,
		seed, time.Now(),
	).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}

	got, err := NextOrderNumber(tx)
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
	if want := prefix + "0042"; got != want {
		t.Fatalf("next number = %s, want %s", got, want)
	}
}

func TestNextNumberComparesNumerically(t *testing.T) {
	tx := testDB(t)
	prefix := OrderNumberPrefix(time.Now().Year())

	// A suffix past the zero-padded width sorts below "9999" as text; the
	// allocator must still continue from the numeric maximum.
	for _, suffix := range []string{"9999", "10000"} {
		if err := tx.Exec(
			`INSERT INTO rental_orders (order_number, customer_id, order_date, status) VALUES (?, 1, ?, 'CANCELLED')`,
			prefix+suffix, time.Now(),
		).Error; err != nil {
			t.Fatalf("seed order %s: %v", suffix, err)
		}
	}

	got, err := NextOrderNumber(tx)
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
	if want := prefix + "10001"; got != want {
		t.Fatalf("next number = %s, want %s", got, want)
	}
}

func TestIsDuplicateNumber(t *testing.T) {
	tx := testDB(t)
	prefix := OrderNumberPrefix(time.Now().Year())

	insert := func() error {
		return tx.Exec(
			`INSERT INTO rental_orders (order_number, customer_id, order_date, status) VALUES (?, 1, ?, 'CANCELLED')`,
			prefix+"0001", time.Now(),
		).Error
	}
	if err := insert(); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	err := insert()
	if err == nil {
		t.Fatal("duplicate insert succeeded")
	}
	if !IsDuplicateNumber(err) {
		t.Fatalf("IsDuplicateNumber(%v) = false, want true", err)
	}
	if IsDuplicateNumber(nil) {
		t.Fatal("IsDuplicateNumber(nil) = true, want false")
	}
}

func TestNumberSequencesAreIndependent(t *testing.T) {
	tx := testDB(t)
	a := mustCustomer(t, tx, "Both", "9400000004")
	chairs := mustItem(t, tx, "Chairs", 100, 5)

	mustBooking(t, tx, a.ID, BookingLine{InventoryItemID: chairs.ID, BookedQty: 1})
	bill, err := CreateBill(tx, &NewBill{CustomerID: a.ID})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	// The bill counter is not advanced by order allocations.
	if want := BillNumberPrefix(time.Now().Year()) + "001"; bill.BillNumber != want {
		t.Fatalf("bill number = %s, want %s", bill.BillNumber, want)
	}
}
