package services

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	orderNumberWidth = 4
	billNumberWidth  = 3
)

// OrderNumberPrefix is the year-scoped prefix for rental order numbers,
// e.g. "RO-2026-".
func OrderNumberPrefix(year int) string {
	return fmt.Sprintf("RO-%d-", year)
}

// BillNumberPrefix is the year-scoped prefix for bill numbers,
// e.g. "FS13-2026-".
func BillNumberPrefix(year int) string {
	return fmt.Sprintf("FS13-%d-", year)
}

// NextOrderNumber allocates the next RO-YYYY-NNNN identifier inside the
// enclosing transaction.
func NextOrderNumber(tx *gorm.DB) (string, error) {
	return nextNumber(tx, "rental_orders", "order_number",
		OrderNumberPrefix(time.Now().Year()), orderNumberWidth)
}

// NextBillNumber allocates the next FS13-YYYY-NNN identifier inside the
// enclosing transaction.
func NextBillNumber(tx *gorm.DB) (string, error) {
	return nextNumber(tx, "bills", "bill_number",
		BillNumberPrefix(time.Now().Year()), billNumberWidth)
}

// nextNumber finds the greatest integer suffix stored under prefix and
// returns prefix plus the zero-padded successor. The comparison is numeric;
// lexicographic order lies once a suffix outgrows its zero padding
// (prefix+"10000" sorts below prefix+"9999"). Concurrent callers serialise
// on an advisory lock held until the transaction ends; numbers allocated in a
// rolled-back transaction leave gaps, which is acceptable.
func nextNumber(tx *gorm.DB, table, column, prefix string, width int) (string, error) {
	if err := lockPrefix(tx, prefix); err != nil {
		return "", err
	}

	var last sql.NullInt64
	err := tx.Table(table).
		Select("MAX(CAST(SUBSTR("+column+", ?) AS INTEGER))", len(prefix)+1).
		Where(column+" LIKE ?", prefix+"%").
		Scan(&last).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%0*d", prefix, width, last.Int64+1), nil
}

// IsDuplicateNumber reports whether an insert failed on the unique identifier
// index, so the caller can re-read the sequence and retry.
func IsDuplicateNumber(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
