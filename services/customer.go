package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"mandap-backend/apperr"
	"mandap-backend/models"
)

// NewCustomer is the create payload for the directory.
type NewCustomer struct {
	Name             string   `json:"name" validate:"required"`
	Mobile           string   `json:"mobile" validate:"required"`
	PalNumbers       []string `json:"pal_numbers"`
	AlternateContact string   `json:"alternate_contact"`
	Address          string   `json:"address"`
	Notes            string   `json:"notes"`
}

// UpdateCustomer is the whole-document update payload; pal numbers replace
// the stored set when non-nil.
type UpdateCustomer struct {
	Name             string   `json:"name" validate:"required"`
	Mobile           string   `json:"mobile" validate:"required"`
	PalNumbers       []string `json:"pal_numbers"`
	AlternateContact string   `json:"alternate_contact"`
	Address          string   `json:"address"`
	Notes            string   `json:"notes"`
	Active           *bool    `json:"active"`
}

// CustomerView is a customer enriched with order/bill flags.
type CustomerView struct {
	models.Customer
	PalNumbers       []string `json:"pal_numbers"`
	HasUnbilledOrders bool    `json:"has_unbilled_orders"`
	HasBilledOrders   bool    `json:"has_billed_orders"`
	HasRentalOrders   bool    `json:"has_rental_orders"`
	HasActiveOrders   bool    `json:"has_active_orders"`
	HasPendingBills   bool    `json:"has_pending_bills"`
}

// activeOrderStatuses are the states blocking a customer soft delete: stock is
// reserved, out, or returned but not yet billed through to completion.
var activeOrderStatuses = []models.RentalOrderStatus{
	models.StatusBooked, models.StatusDispatched, models.StatusPartiallyReturned, models.StatusReturned,
}

// CreateCustomer adds a directory entry with its pal numbers.
func CreateCustomer(tx *gorm.DB, in *NewCustomer) (*models.Customer, error) {
	if err := checkPalNumbersFree(tx, in.PalNumbers, 0); err != nil {
		return nil, err
	}

	customer := models.Customer{
		Name:             in.Name,
		Mobile:           in.Mobile,
		AlternateContact: in.AlternateContact,
		Address:          in.Address,
		Notes:            in.Notes,
		Active:           true,
	}
	for _, p := range in.PalNumbers {
		customer.PalNumbers = append(customer.PalNumbers, models.CustomerPalNumber{PalNumber: p})
	}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, err
	}
	if err := RecordCustomerRevision(tx, actorOf(tx), &customer, models.RevisionInsert); err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCustomer loads a customer with pal numbers.
func GetCustomer(tx *gorm.DB, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := tx.Preload("PalNumbers").First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &apperr.NotFoundError{Entity: "customer", ID: id}
		}
		return nil, err
	}
	return &customer, nil
}

// ModifyCustomer updates a directory entry, replacing the pal number set when
// one is supplied.
func ModifyCustomer(tx *gorm.DB, id uint, in *UpdateCustomer) (*models.Customer, error) {
	customer, err := GetCustomer(tx, id)
	if err != nil {
		return nil, err
	}

	customer.Name = in.Name
	customer.Mobile = in.Mobile
	customer.AlternateContact = in.AlternateContact
	customer.Address = in.Address
	customer.Notes = in.Notes
	if in.Active != nil {
		customer.Active = *in.Active
	}

	if in.PalNumbers != nil {
		if err := checkPalNumbersFree(tx, in.PalNumbers, customer.ID); err != nil {
			return nil, err
		}
		if err := tx.Where("customer_id = ?", customer.ID).
			Delete(&models.CustomerPalNumber{}).Error; err != nil {
			return nil, err
		}
		customer.PalNumbers = nil
		for _, p := range in.PalNumbers {
			customer.PalNumbers = append(customer.PalNumbers,
				models.CustomerPalNumber{CustomerID: customer.ID, PalNumber: p})
		}
	}

	if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(customer).Error; err != nil {
		return nil, err
	}
	if err := RecordCustomerRevision(tx, actorOf(tx), customer, models.RevisionUpdate); err != nil {
		return nil, err
	}
	return customer, nil
}

// SoftDeleteCustomer flags the customer inactive. It fails while the customer
// has orders in an active state or any bill with outstanding net payable.
func SoftDeleteCustomer(tx *gorm.DB, id uint) error {
	customer, err := GetCustomer(tx, id)
	if err != nil {
		return err
	}

	var activeOrders int64
	if err := tx.Model(&models.RentalOrder{}).
		Where("customer_id = ? AND status IN ?", id, activeOrderStatuses).
		Count(&activeOrders).Error; err != nil {
		return err
	}
	if activeOrders > 0 {
		return &apperr.DeletionBlockedError{Reason: "customer has active rental orders"}
	}

	var pendingBills int64
	if err := tx.Model(&models.Bill{}).
		Where("customer_id = ? AND net_payable > 0", id).
		Count(&pendingBills).Error; err != nil {
		return err
	}
	if pendingBills > 0 {
		return &apperr.DeletionBlockedError{Reason: "pending payments"}
	}

	customer.Active = false
	if err := tx.Save(customer).Error; err != nil {
		return err
	}
	return RecordCustomerRevision(tx, actorOf(tx), customer, models.RevisionUpdate)
}

// ListCustomers returns active customers with their order/bill flags.
func ListCustomers(tx *gorm.DB) ([]CustomerView, error) {
	var customers []models.Customer
	if err := tx.Preload("PalNumbers").
		Where("active = ?", true).
		Order("name ASC").
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return enrichCustomers(tx, customers)
}

// SearchCustomers matches on name or mobile, case-insensitive substring.
func SearchCustomers(tx *gorm.DB, query string) ([]CustomerView, error) {
	var customers []models.Customer
	pattern := "%" + query + "%"
	if err := tx.Preload("PalNumbers").
		Where("active = ?", true).
		Where("LOWER(name) LIKE LOWER(?) OR mobile LIKE ?", pattern, pattern).
		Order("name ASC").
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return enrichCustomers(tx, customers)
}

func enrichCustomers(tx *gorm.DB, customers []models.Customer) ([]CustomerView, error) {
	unbilled, err := customerIDSet(tx.Model(&models.RentalOrder{}).
		Distinct("customer_id").Where("bill_id IS NULL"))
	if err != nil {
		return nil, err
	}
	billed, err := customerIDSet(tx.Model(&models.RentalOrder{}).
		Distinct("customer_id").Where("bill_id IS NOT NULL"))
	if err != nil {
		return nil, err
	}
	anyOrder, err := customerIDSet(tx.Model(&models.RentalOrder{}).Distinct("customer_id"))
	if err != nil {
		return nil, err
	}
	active, err := customerIDSet(tx.Model(&models.RentalOrder{}).
		Distinct("customer_id").Where("status IN ?", activeOrderStatuses))
	if err != nil {
		return nil, err
	}
	pending, err := customerIDSet(tx.Model(&models.Bill{}).
		Distinct("customer_id").Where("net_payable > 0"))
	if err != nil {
		return nil, err
	}

	views := make([]CustomerView, 0, len(customers))
	for _, c := range customers {
		views = append(views, CustomerView{
			Customer:          c,
			PalNumbers:        c.PalNumberList(),
			HasUnbilledOrders: unbilled[c.ID],
			HasBilledOrders:   billed[c.ID],
			HasRentalOrders:   anyOrder[c.ID],
			HasActiveOrders:   active[c.ID],
			HasPendingBills:   pending[c.ID],
		})
	}
	return views, nil
}

func customerIDSet(q *gorm.DB) (map[uint]bool, error) {
	var ids []uint
	if err := q.Pluck("customer_id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func checkPalNumbersFree(tx *gorm.DB, palNumbers []string, selfID uint) error {
	if len(palNumbers) == 0 {
		return nil
	}
	seen := map[string]bool{}
	for _, p := range palNumbers {
		if seen[p] {
			return &apperr.ConflictError{Reason: fmt.Sprintf("duplicate pal number in request: %s", p)}
		}
		seen[p] = true
	}

	q := tx.Model(&models.CustomerPalNumber{}).Where("pal_number IN ?", palNumbers)
	if selfID != 0 {
		q = q.Where("customer_id <> ?", selfID)
	}
	var taken []string
	if err := q.Pluck("pal_number", &taken).Error; err != nil {
		return err
	}
	if len(taken) > 0 {
		return &apperr.ConflictError{Reason: fmt.Sprintf("pal number already in use: %s", taken[0])}
	}
	return nil
}
