package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mandap-backend/database"
	"mandap-backend/models"
)

var testDBSeq int64

// testDB opens a fresh in-memory database, migrated and tagged with a test
// actor. Each test gets its own named memory database.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:servicetest%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return WithActor(db, "tester")
}

func mustCustomer(t *testing.T, tx *gorm.DB, name, mobile string, pals ...string) *models.Customer {
	t.Helper()
	c, err := CreateCustomer(tx, &NewCustomer{Name: name, Mobile: mobile, PalNumbers: pals})
	if err != nil {
		t.Fatalf("create customer %s: %v", name, err)
	}
	return c
}

func mustItem(t *testing.T, tx *gorm.DB, name string, stock int, rate int64) *models.InventoryItem {
	t.Helper()
	item, err := CreateItem(tx, &NewInventoryItem{
		NameEnglish: name,
		TotalStock:  stock,
		DefaultRate: decimal.NewFromInt(rate),
	})
	if err != nil {
		t.Fatalf("create item %s: %v", name, err)
	}
	return item
}

func mustBooking(t *testing.T, tx *gorm.DB, customerID uint, lines ...BookingLine) *models.RentalOrder {
	t.Helper()
	order, err := CreateBooking(tx, &NewRentalOrder{CustomerID: customerID, Items: lines})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return order
}

func reloadItem(t *testing.T, tx *gorm.DB, id uint) *models.InventoryItem {
	t.Helper()
	item, err := GetItem(tx, id)
	if err != nil {
		t.Fatalf("reload item %d: %v", id, err)
	}
	return item
}
