package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds a row-level write lock on Postgres. The sqlite dialect used
// by the test suite has no FOR UPDATE; the whole database serialises writers
// there, so the clause is skipped.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockPrefix takes a transaction-scoped advisory lock keyed by an identifier
// prefix so concurrent number allocations serialise even when no row for the
// prefix exists yet.
func lockPrefix(tx *gorm.DB, prefix string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error
}
