package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"mandap-backend/apperr"
	"mandap-backend/models"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCreateBillComputesTotals(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Payer", "9100000001")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	bill, err := CreateBill(tx, &NewBill{
		CustomerID: customer.ID,
		Items: []BillLineInput{
			{ItemID: &chairs.ID, Quantity: 5},
			{IsCustomItem: true, CustomItemName: "Transport", Quantity: 2, Rate: decPtr(20)},
		},
		Deposit: dec(30),
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	// 5 * 10 (default rate) + 2 * 20 = 90
	if !bill.TotalAmount.Equal(dec(90)) {
		t.Fatalf("total = %s, want 90", bill.TotalAmount)
	}
	if !bill.Deposit.Equal(dec(30)) {
		t.Fatalf("deposit = %s, want 30", bill.Deposit)
	}
	if !bill.NetPayable.Equal(dec(60)) {
		t.Fatalf("net payable = %s, want 60", bill.NetPayable)
	}
	if bill.PaymentStatus != models.PaymentStatusPartial {
		t.Fatalf("payment status = %s, want PARTIAL", bill.PaymentStatus)
	}

	deposit := bill.DepositPayment()
	if deposit == nil || !deposit.IsDeposit {
		t.Fatal("deposit payment row missing")
	}
}

func TestBillSkipsNonPositiveLines(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Sparse", "9100000002")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	bill, err := CreateBill(tx, &NewBill{
		CustomerID: customer.ID,
		Items: []BillLineInput{
			{ItemID: &chairs.ID, Quantity: 0},
			{ItemID: &chairs.ID, Quantity: 3},
		},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if len(bill.Items) != 1 {
		t.Fatalf("lines = %d, want 1 (zero-qty line skipped)", len(bill.Items))
	}
	if !bill.TotalAmount.Equal(dec(30)) {
		t.Fatalf("total = %s, want 30", bill.TotalAmount)
	}
}

func TestSecondBillForCustomerConflicts(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Doubled", "9100000003")

	if _, err := CreateBill(tx, &NewBill{CustomerID: customer.ID}); err != nil {
		t.Fatalf("first bill: %v", err)
	}
	_, err := CreateBill(tx, &NewBill{CustomerID: customer.ID})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestPaymentStatusTransitions(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Gradual", "9100000004")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	bill, err := CreateBill(tx, &NewBill{
		CustomerID: customer.ID,
		Items:      []BillLineInput{{ItemID: &chairs.ID, Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.PaymentStatus != models.PaymentStatusDue {
		t.Fatalf("status = %s, want DUE", bill.PaymentStatus)
	}

	if _, err := AddPayment(tx, bill.ID, &NewPayment{Amount: dec(40)}); err != nil {
		t.Fatalf("partial payment: %v", err)
	}
	bill, _ = GetBill(tx, bill.ID)
	if bill.PaymentStatus != models.PaymentStatusPartial {
		t.Fatalf("status = %s, want PARTIAL", bill.PaymentStatus)
	}

	if _, err := AddPayment(tx, bill.ID, &NewPayment{Amount: dec(60)}); err != nil {
		t.Fatalf("final payment: %v", err)
	}
	bill, _ = GetBill(tx, bill.ID)
	if bill.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("status = %s, want PAID", bill.PaymentStatus)
	}
}

func TestSettlementDiscountReachesPaid(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Bargain", "9100000005")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	bill, err := CreateBill(tx, &NewBill{
		CustomerID:         customer.ID,
		Items:              []BillLineInput{{ItemID: &chairs.ID, Quantity: 10}},
		SettlementDiscount: dec(20),
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	// Payable is total minus discount: 100 - 20 = 80.
	if _, err := AddPayment(tx, bill.ID, &NewPayment{Amount: dec(80)}); err != nil {
		t.Fatalf("payment: %v", err)
	}
	bill, _ = GetBill(tx, bill.ID)
	if bill.PaymentStatus != models.PaymentStatusPaid {
		t.Fatalf("status = %s, want PAID at discounted payable", bill.PaymentStatus)
	}
}

func TestDeleteBillBlockedByPayment(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Settled", "9100000006")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	order := mustBooking(t, tx, customer.ID, BookingLine{InventoryItemID: chairs.ID, BookedQty: 10})
	order, err := DispatchItems(tx, order.ID, &Voucher{Items: []VoucherLine{{InventoryItemID: chairs.ID, Quantity: 10}}})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	order, err = ReceiveItems(tx, order.ID, &Voucher{Items: []VoucherLine{{InventoryItemID: chairs.ID, Quantity: 10}}})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}

	bill, err := CreateBill(tx, &NewBill{
		CustomerID:    customer.ID,
		Items:         []BillLineInput{{ItemID: &chairs.ID, Quantity: 10}},
		RentalOrderID: &order.ID,
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	payment, err := AddPayment(tx, bill.ID, &NewPayment{Amount: dec(50)})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}

	err = DeleteBill(tx, bill.ID)
	var blocked *apperr.DeletionBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("err = %v, want DeletionBlockedError", err)
	}

	if err := DeletePayment(tx, payment.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if err := DeleteBill(tx, bill.ID); err != nil {
		t.Fatalf("delete bill after payment removal: %v", err)
	}

	// The linked order reverts COMPLETED -> RETURNED and is unlinked.
	order, err = GetOrder(tx, order.ID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if order.Status != models.StatusReturned {
		t.Fatalf("status = %s, want RETURNED after bill delete", order.Status)
	}
	if order.BillID != nil {
		t.Fatal("order still linked to deleted bill")
	}
}

func TestModifyBillZeroesDeposit(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Refunded", "9100000007")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	bill, err := CreateBill(tx, &NewBill{
		CustomerID: customer.ID,
		Items:      []BillLineInput{{ItemID: &chairs.ID, Quantity: 5}},
		Deposit:    dec(25),
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	bill, err = ModifyBill(tx, bill.ID, &UpdateBill{
		Items:   []BillLineInput{{ItemID: &chairs.ID, Quantity: 5}},
		Deposit: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("modify bill: %v", err)
	}

	// The deposit row stays for the books, amount zeroed.
	deposit := bill.DepositPayment()
	if deposit == nil {
		t.Fatal("deposit row was deleted, want zeroed")
	}
	if !deposit.Amount.IsZero() {
		t.Fatalf("deposit amount = %s, want 0", deposit.Amount)
	}
	if !bill.NetPayable.Equal(dec(50)) {
		t.Fatalf("net payable = %s, want 50", bill.NetPayable)
	}
}

func TestModifyBillCannotChangeCustomer(t *testing.T) {
	tx := testDB(t)
	a := mustCustomer(t, tx, "Owner", "9100000008")
	b := mustCustomer(t, tx, "Other", "9100000009")

	bill, err := CreateBill(tx, &NewBill{CustomerID: a.ID})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	_, err = ModifyBill(tx, bill.ID, &UpdateBill{CustomerID: &b.ID})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestSecondDepositConflicts(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Cautious", "9100000010")

	bill, err := CreateBill(tx, &NewBill{CustomerID: customer.ID, Deposit: dec(10)})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	_, err = AddPayment(tx, bill.ID, &NewPayment{Amount: dec(10), IsDeposit: true})
	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestNegativePaymentRejected(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Tricky", "9100000011")

	bill, err := CreateBill(tx, &NewBill{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	_, err = AddPayment(tx, bill.ID, &NewPayment{Amount: dec(-5)})
	var bad *apperr.BadInputError
	if !errors.As(err, &bad) {
		t.Fatalf("err = %v, want BadInputError", err)
	}
}

func TestToBeReturnedOnOverDeposit(t *testing.T) {
	tx := testDB(t)
	customer := mustCustomer(t, tx, "Overpaid", "9100000012")
	chairs := mustItem(t, tx, "Chairs", 100, 10)

	bill, err := CreateBill(tx, &NewBill{
		CustomerID: customer.ID,
		Items:      []BillLineInput{{ItemID: &chairs.ID, Quantity: 3}},
		Deposit:    dec(100),
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	// Total 30, deposit 100: 70 owed back.
	if got := bill.ToBeReturned(); !got.Equal(dec(70)) {
		t.Fatalf("to be returned = %s, want 70", got)
	}
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
