package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mandap-backend/apperr"
	"mandap-backend/config"
	"mandap-backend/models"
)

// BillLineInput is one requested bill line. Catalog lines resolve ItemID and
// default the rate; custom lines carry only a name.
type BillLineInput struct {
	ItemID         *uint            `json:"item_id"`
	IsCustomItem   bool             `json:"is_custom_item"`
	CustomItemName string           `json:"custom_item_name"`
	IsLostItem     bool             `json:"is_lost_item"`
	Quantity       int              `json:"quantity"`
	Rate           *decimal.Decimal `json:"rate"`
}

// NewBill is the bill creation payload.
type NewBill struct {
	CustomerID          uint             `json:"customer_id" validate:"required"`
	PalNumbers          *string          `json:"pal_numbers"`
	BillType            string           `json:"bill_type"`
	BillDate            *time.Time       `json:"bill_date"`
	SettlementDiscount  decimal.Decimal  `json:"settlement_discount"`
	Remarks             string           `json:"remarks"`
	Items               []BillLineInput  `json:"items"`
	Deposit             decimal.Decimal  `json:"deposit"`
	DepositMethod       string           `json:"deposit_method"`
	DepositChequeNumber string           `json:"deposit_cheque_number"`
	RentalOrderID       *uint            `json:"rental_order_id"`
}

// UpdateBill replaces the item list wholesale; the customer is immutable.
type UpdateBill struct {
	CustomerID          *uint           `json:"customer_id"`
	PalNumbers          string          `json:"pal_numbers"`
	BillType            string          `json:"bill_type"`
	SettlementDiscount  decimal.Decimal `json:"settlement_discount"`
	Remarks             string          `json:"remarks"`
	Items               []BillLineInput `json:"items"`
	Deposit             decimal.Decimal `json:"deposit"`
	DepositMethod       string          `json:"deposit_method"`
	DepositChequeNumber string          `json:"deposit_cheque_number"`
}

// NewPayment is the payload for the payments sub-ledger.
type NewPayment struct {
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentDate   *time.Time      `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	ChequeNumber  string          `json:"cheque_number"`
	Remarks       string          `json:"remarks"`
	IsDeposit     bool            `json:"is_deposit"`
}

// BillView is a bill enriched with customer details, the over-deposit amount
// and the linked order's booked quantities.
type BillView struct {
	models.Bill
	CustomerName   string          `json:"customer_name"`
	CustomerMobile string          `json:"customer_mobile"`
	ToBeReturned   decimal.Decimal `json:"to_be_returned"`
	RentalOrderID  *uint           `json:"rental_order_id"`
	OrderQuantities map[uint]int   `json:"order_item_quantities,omitempty"`
}

// GetBill loads a bill with items, payments and customer.
func GetBill(tx *gorm.DB, id uint) (*models.Bill, error) {
	var bill models.Bill
	err := tx.Preload("Items").
		Preload("Payments").
		Preload("Customer.PalNumbers").
		First(&bill, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Entity: "bill", ID: id}
		}
		return nil, err
	}
	return &bill, nil
}

// GetBillByNumber loads a bill by its unique number.
func GetBillByNumber(tx *gorm.DB, number string) (*models.Bill, error) {
	var bill models.Bill
	err := tx.Preload("Items").
		Preload("Payments").
		Preload("Customer.PalNumbers").
		Where("bill_number = ?", number).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Entity: "bill", ID: number}
		}
		return nil, err
	}
	return &bill, nil
}

// CreateBill builds a bill for a customer who has none, optionally records an
// initial deposit payment and links a rental order, completing it.
func CreateBill(tx *gorm.DB, in *NewBill) (*models.Bill, error) {
	customer, err := GetCustomer(tx, in.CustomerID)
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := tx.Model(&models.Bill{}).
		Where("customer_id = ?", customer.ID).
		Count(&existing).Error; err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, &apperr.ConflictError{Reason: "customer already has a bill; edit the existing bill"}
	}

	billDate := today()
	if in.BillDate != nil {
		billDate = *in.BillDate
	}
	palNumbers := "1"
	if in.PalNumbers != nil {
		palNumbers = *in.PalNumbers
	} else if list := customer.PalNumberList(); len(list) > 0 {
		palNumbers = strings.Join(list, ",")
	}
	billType := models.BillTypeInvoice
	if in.BillType == string(models.BillTypeEstimate) {
		billType = models.BillTypeEstimate
	}

	items, err := buildBillItems(tx, in.Items)
	if err != nil {
		return nil, err
	}

	// The advisory lock prevents duplicate numbers on Postgres; dialects
	// without it rely on the unique index and a re-read retry.
	var bill models.Bill
	for attempt := 0; ; attempt++ {
		number, err := NextBillNumber(tx)
		if err != nil {
			return nil, err
		}
		bill = models.Bill{
			BillNumber:         number,
			CustomerID:         customer.ID,
			PalNumbers:         palNumbers,
			BillType:           billType,
			PaymentStatus:      models.PaymentStatusDue,
			SettlementDiscount: in.SettlementDiscount,
			BillDate:           billDate,
			Remarks:            in.Remarks,
			CreatedBy:          actorOf(tx),
		}
		bill.Items = items

		if in.Deposit.GreaterThan(decimal.Zero) {
			bill.Payments = append(bill.Payments, models.Payment{
				Amount:        in.Deposit,
				PaymentDate:   billDate,
				PaymentMethod: models.ParsePaymentMethod(in.DepositMethod),
				ChequeNumber:  in.DepositChequeNumber,
				Remarks:       "Initial Deposit",
				IsDeposit:     true,
				CreatedBy:     actorOf(tx),
			})
		}

		bill.Recalculate()
		err = tx.Create(&bill).Error
		if err == nil {
			break
		}
		if !IsDuplicateNumber(err) {
			return nil, err
		}
		if attempt >= 2 {
			return nil, &apperr.ConflictError{Reason: "could not allocate a unique bill number"}
		}
	}

	if in.RentalOrderID != nil {
		order, err := GetOrder(tx, *in.RentalOrderID)
		if err != nil {
			return nil, err
		}
		order.BillID = &bill.ID
		order.BillOutOfSync = false
		if order.Status == models.StatusReturned {
			order.Status = models.StatusCompleted
		}
		if err := tx.Omit("Items", "Transactions", "Customer").Save(order).Error; err != nil {
			return nil, err
		}
		if err := RecordRentalOrderRevision(tx, actorOf(tx), order, models.RevisionUpdate); err != nil {
			return nil, err
		}
		config.GetLogger().WithFields(logrus.Fields{
			"bill_number":  bill.BillNumber,
			"order_number": order.OrderNumber,
		}).Info("bill linked to rental order")
	}

	config.GetLogger().WithFields(logrus.Fields{
		"bill_number": bill.BillNumber,
		"total":       bill.TotalAmount,
		"lines":       len(bill.Items),
	}).Info("bill created")
	return GetBill(tx, bill.ID)
}

// ModifyBill updates a bill in place. Items are replaced wholesale; the
// deposit payment is edited, inserted, or zeroed (never deleted) depending on
// the requested deposit.
func ModifyBill(tx *gorm.DB, id uint, in *UpdateBill) (*models.Bill, error) {
	bill, err := GetBill(tx, id)
	if err != nil {
		return nil, err
	}

	if in.CustomerID != nil && *in.CustomerID != bill.CustomerID {
		return nil, &apperr.ConflictError{Reason: "cannot change the customer on an existing bill"}
	}

	if in.PalNumbers != "" {
		bill.PalNumbers = in.PalNumbers
	}
	if in.BillType != "" {
		if in.BillType == string(models.BillTypeEstimate) {
			bill.BillType = models.BillTypeEstimate
		} else {
			bill.BillType = models.BillTypeInvoice
		}
	}
	bill.SettlementDiscount = in.SettlementDiscount
	bill.Remarks = in.Remarks

	if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
		return nil, err
	}
	items, err := buildBillItems(tx, in.Items)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].BillID = bill.ID
		if err := tx.Create(&items[i]).Error; err != nil {
			return nil, err
		}
	}
	bill.Items = items

	deposit := bill.DepositPayment()
	switch {
	case in.Deposit.GreaterThan(decimal.Zero) && deposit != nil:
		deposit.Amount = in.Deposit
		if in.DepositMethod != "" {
			deposit.PaymentMethod = models.ParsePaymentMethod(in.DepositMethod)
		}
		deposit.ChequeNumber = in.DepositChequeNumber
		if err := tx.Save(deposit).Error; err != nil {
			return nil, err
		}
	case in.Deposit.GreaterThan(decimal.Zero):
		payment := models.Payment{
			BillID:        bill.ID,
			Amount:        in.Deposit,
			PaymentDate:   bill.BillDate,
			PaymentMethod: models.ParsePaymentMethod(in.DepositMethod),
			ChequeNumber:  in.DepositChequeNumber,
			Remarks:       "Initial Deposit",
			IsDeposit:     true,
			CreatedBy:     actorOf(tx),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return nil, err
		}
		bill.Payments = append(bill.Payments, payment)
	case deposit != nil:
		// Zero the historical deposit row rather than deleting it.
		deposit.Amount = decimal.Zero
		if err := tx.Save(deposit).Error; err != nil {
			return nil, err
		}
	}

	bill.Recalculate()
	if err := tx.Omit("Items", "Payments", "Customer").Save(bill).Error; err != nil {
		return nil, err
	}

	if err := clearOutOfSync(tx, bill.ID); err != nil {
		return nil, err
	}
	return GetBill(tx, bill.ID)
}

// DeleteBill removes a bill. Blocked while any non-zero non-deposit payment
// exists. A linked rental order is unlinked and reverted COMPLETED->RETURNED.
func DeleteBill(tx *gorm.DB, id uint) error {
	bill, err := GetBill(tx, id)
	if err != nil {
		return err
	}

	for i := range bill.Payments {
		p := &bill.Payments[i]
		if !p.IsDeposit && p.Amount.GreaterThan(decimal.Zero) {
			return &apperr.DeletionBlockedError{Reason: "payments have been recorded on this bill; delete the payments first"}
		}
	}

	var order models.RentalOrder
	err = tx.Where("bill_id = ?", bill.ID).First(&order).Error
	if err == nil {
		order.BillID = nil
		order.BillOutOfSync = false
		if order.Status == models.StatusCompleted {
			order.Status = models.StatusReturned
		}
		if err := tx.Omit("Items", "Transactions", "Customer").Save(&order).Error; err != nil {
			return err
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.BillItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("bill_id = ?", bill.ID).Delete(&models.Payment{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.Bill{}, bill.ID).Error; err != nil {
		return err
	}
	config.GetLogger().WithField("bill_number", bill.BillNumber).Warn("bill deleted")
	return nil
}

// AddPayment appends a payment to the bill's ledger and re-derives totals.
func AddPayment(tx *gorm.DB, billID uint, in *NewPayment) (*models.Payment, error) {
	bill, err := GetBill(tx, billID)
	if err != nil {
		return nil, err
	}
	if in.Amount.IsNegative() {
		return nil, &apperr.BadInputError{Field: "amount", Reason: "must not be negative"}
	}
	if in.IsDeposit && bill.DepositPayment() != nil {
		return nil, &apperr.ConflictError{Reason: "bill already has a deposit payment"}
	}

	paymentDate := today()
	if in.PaymentDate != nil {
		paymentDate = *in.PaymentDate
	}
	payment := models.Payment{
		BillID:        bill.ID,
		Amount:        in.Amount,
		PaymentDate:   paymentDate,
		PaymentMethod: models.ParsePaymentMethod(in.PaymentMethod),
		ChequeNumber:  in.ChequeNumber,
		Remarks:       in.Remarks,
		IsDeposit:     in.IsDeposit,
		CreatedBy:     actorOf(tx),
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, err
	}

	if err := recalcAndSave(tx, bill.ID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ModifyPayment edits one ledger entry and re-derives the bill totals.
func ModifyPayment(tx *gorm.DB, paymentID uint, in *NewPayment) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Entity: "payment", ID: paymentID}
		}
		return nil, err
	}
	if in.Amount.IsNegative() {
		return nil, &apperr.BadInputError{Field: "amount", Reason: "must not be negative"}
	}

	payment.Amount = in.Amount
	if in.PaymentDate != nil {
		payment.PaymentDate = *in.PaymentDate
	}
	payment.PaymentMethod = models.ParsePaymentMethod(in.PaymentMethod)
	payment.ChequeNumber = in.ChequeNumber
	payment.Remarks = in.Remarks
	payment.IsDeposit = in.IsDeposit
	if err := tx.Save(&payment).Error; err != nil {
		return nil, err
	}

	if err := recalcAndSave(tx, payment.BillID); err != nil {
		return nil, err
	}
	return &payment, nil
}

// DeletePayment removes one ledger entry and re-derives the bill totals.
func DeletePayment(tx *gorm.DB, paymentID uint) error {
	var payment models.Payment
	if err := tx.First(&payment, paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &apperr.NotFoundError{Entity: "payment", ID: paymentID}
		}
		return err
	}
	if err := tx.Delete(&payment).Error; err != nil {
		return err
	}
	return recalcAndSave(tx, payment.BillID)
}

// ListPayments returns a bill's payments, oldest first.
func ListPayments(tx *gorm.DB, billID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := tx.Where("bill_id = ?", billID).Order("payment_date ASC, id ASC").Find(&payments).Error
	return payments, err
}

// ListBills returns every bill, newest first.
func ListBills(tx *gorm.DB) ([]models.Bill, error) {
	var bills []models.Bill
	err := tx.Preload("Items").
		Preload("Payments").
		Preload("Customer.PalNumbers").
		Order("bill_date DESC, id DESC").
		Find(&bills).Error
	return bills, err
}

// BillsByCustomer returns the customer's bills.
func BillsByCustomer(tx *gorm.DB, customerID uint) ([]models.Bill, error) {
	var bills []models.Bill
	err := tx.Preload("Items").
		Preload("Payments").
		Where("customer_id = ?", customerID).
		Find(&bills).Error
	return bills, err
}

// BillsByYear returns bills dated within one calendar year.
func BillsByYear(tx *gorm.DB, year int) ([]models.Bill, error) {
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)
	var bills []models.Bill
	err := tx.Preload("Items").
		Preload("Payments").
		Where("bill_date >= ? AND bill_date < ?", start, end).
		Order("bill_date DESC").
		Find(&bills).Error
	return bills, err
}

// SearchBills matches on bill number or customer name.
func SearchBills(tx *gorm.DB, query string) ([]models.Bill, error) {
	pattern := "%" + query + "%"
	var bills []models.Bill
	err := tx.Preload("Items").
		Preload("Payments").
		Joins("JOIN customers ON customers.id = bills.customer_id").
		Where("LOWER(bills.bill_number) LIKE LOWER(?) OR LOWER(customers.name) LIKE LOWER(?)", pattern, pattern).
		Order("bills.bill_date DESC").
		Find(&bills).Error
	return bills, err
}

// EnrichBill builds the response view with customer details and the linked
// order's booked quantities.
func EnrichBill(tx *gorm.DB, bill *models.Bill) (*BillView, error) {
	view := BillView{
		Bill:           *bill,
		CustomerName:   bill.Customer.Name,
		CustomerMobile: bill.Customer.Mobile,
		ToBeReturned:   bill.ToBeReturned(),
	}

	var order models.RentalOrder
	err := tx.Preload("Items").Where("bill_id = ?", bill.ID).First(&order).Error
	if err == nil {
		view.RentalOrderID = &order.ID
		view.OrderQuantities = make(map[uint]int, len(order.Items))
		for i := range order.Items {
			view.OrderQuantities[order.Items[i].InventoryItemID] = order.Items[i].BookedQty
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &view, nil
}

func buildBillItems(tx *gorm.DB, inputs []BillLineInput) ([]models.BillItem, error) {
	var items []models.BillItem
	for _, line := range inputs {
		if line.Quantity <= 0 {
			continue
		}

		if line.IsCustomItem {
			if line.CustomItemName == "" {
				return nil, &apperr.BadInputError{Field: "custom_item_name", Reason: "required for a custom line"}
			}
			rate := decimal.Zero
			if line.Rate != nil {
				rate = *line.Rate
			}
			items = append(items, models.BillItem{
				IsCustomItem:   true,
				CustomItemName: line.CustomItemName,
				Quantity:       line.Quantity,
				Rate:           rate,
				Total:          rate.Mul(decimal.NewFromInt(int64(line.Quantity))),
			})
			continue
		}

		if line.ItemID == nil {
			return nil, &apperr.BadInputError{Field: "item_id", Reason: "required for a catalog line"}
		}
		item, err := GetItem(tx, *line.ItemID)
		if err != nil {
			return nil, err
		}
		rate := item.DefaultRate
		if line.Rate != nil {
			rate = *line.Rate
		}
		items = append(items, models.BillItem{
			ItemID:     &item.ID,
			IsLostItem: line.IsLostItem,
			Quantity:   line.Quantity,
			Rate:       rate,
			Total:      rate.Mul(decimal.NewFromInt(int64(line.Quantity))),
		})
	}
	return items, nil
}

func recalcAndSave(tx *gorm.DB, billID uint) error {
	bill, err := GetBill(tx, billID)
	if err != nil {
		return err
	}
	bill.Recalculate()
	return tx.Omit("Items", "Payments", "Customer").Save(bill).Error
}

func clearOutOfSync(tx *gorm.DB, billID uint) error {
	return tx.Model(&models.RentalOrder{}).
		Where("bill_id = ?", billID).
		Update("bill_out_of_sync", false).Error
}
