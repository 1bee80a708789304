package database

import (
	"fmt"

	"gorm.io/gorm"

	"mandap-backend/models"
)

// Migrate applies idempotent schema migrations:
// - AutoMigrate (tables/columns/tag indexes)
// - Money column types (NUMERIC(12,2))
// - Helpful composite indexes
// - Basic CHECK constraints on quantities and amounts
func Migrate(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&models.InventoryItem{},
			&models.Customer{},
			&models.CustomerPalNumber{},
			&models.RentalOrder{},
			&models.RentalOrderItem{},
			&models.RentalOrderTransaction{},
			&models.RentalOrderTransactionItem{},
			&models.Bill{},
			&models.BillItem{},
			&models.Payment{},
			&models.Revision{},
			&models.CustomerRevision{},
			&models.InventoryItemRevision{},
			&models.RentalOrderRevision{},
			&models.IdempotencyKey{},
		); err != nil {
			return fmt.Errorf("automigrate failed: %w", err)
		}

		// Only Postgres gets the hand-written ALTERs; the sqlite test database
		// relies on the tag-derived schema.
		if tx.Dialector.Name() != "postgres" {
			return nil
		}

		alters := []string{
			`ALTER TABLE inventory_items ALTER COLUMN default_rate        TYPE numeric(12,2)`,
			`ALTER TABLE bills           ALTER COLUMN total_amount        TYPE numeric(12,2)`,
			`ALTER TABLE bills           ALTER COLUMN deposit             TYPE numeric(12,2)`,
			`ALTER TABLE bills           ALTER COLUMN settlement_discount TYPE numeric(12,2)`,
			`ALTER TABLE bills           ALTER COLUMN net_payable         TYPE numeric(12,2)`,
			`ALTER TABLE bill_items      ALTER COLUMN rate                TYPE numeric(12,2)`,
			`ALTER TABLE bill_items      ALTER COLUMN total               TYPE numeric(12,2)`,
			`ALTER TABLE payments        ALTER COLUMN amount              TYPE numeric(12,2)`,
		}
		for _, stmt := range alters {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("money type migration failed on: %s - %w", stmt, err)
			}
		}

		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_rental_orders_customer_status ON rental_orders (customer_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_rental_order_items_item ON rental_order_items (inventory_item_id)`,
			`CREATE INDEX IF NOT EXISTS idx_payments_bill_date ON payments (bill_id, payment_date)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_keys_key ON idempotency_keys (key)`,
		}
		for _, stmt := range indexes {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("index migration failed on: %s - %w", stmt, err)
			}
		}

		checks := []string{
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'rental_order_items'::regclass
					  AND conname  = 'chk_order_item_counters'
				) THEN
					ALTER TABLE rental_order_items
					ADD CONSTRAINT chk_order_item_counters
					CHECK (returned_qty >= 0 AND returned_qty <= dispatched_qty AND dispatched_qty <= booked_qty);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'inventory_items'::regclass
					  AND conname  = 'chk_inventory_stock_bounds'
				) THEN
					ALTER TABLE inventory_items
					ADD CONSTRAINT chk_inventory_stock_bounds
					CHECK (available_stock >= 0 AND available_stock <= total_stock AND total_stock >= 0);
				END IF;
			END $$;`,
			`DO $$
			BEGIN
				IF NOT EXISTS (
					SELECT 1 FROM pg_constraint
					WHERE conrelid = 'payments'::regclass
					  AND conname  = 'chk_payments_amount_nonneg'
				) THEN
					ALTER TABLE payments
					ADD CONSTRAINT chk_payments_amount_nonneg
					CHECK (amount >= 0);
				END IF;
			END $$;`,
		}
		for _, stmt := range checks {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("check constraint migration failed: %w", err)
			}
		}

		return nil
	})
}
