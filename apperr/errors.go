package apperr

import "fmt"

// Structured error values returned by the service layer. Each kind carries the
// fields a caller needs to discriminate and render; the HTTP layer maps kinds
// to status codes in middlewares.ErrorHandler.

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Entity string `json:"entity"`
	ID     any    `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %v", e.Entity, e.ID)
}

// InvalidStateTransitionError reports an illegal rental order transition.
type InvalidStateTransitionError struct {
	From     string `json:"from"`
	To       string `json:"to"`
	EntityID uint   `json:"entity_id"`
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s for order %d", e.From, e.To, e.EntityID)
}

// InvariantViolationError reports a broken domain rule, e.g. reducing a booked
// quantity below the dispatched quantity.
type InvariantViolationError struct {
	Rule    string `json:"rule"`
	Context string `json:"context"`
}

func (e *InvariantViolationError) Error() string {
	if e.Context == "" {
		return e.Rule
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Context)
}

// InsufficientStockError reports an ATP failure.
type InsufficientStockError struct {
	ItemID     uint   `json:"item_id"`
	ItemName   string `json:"item_name"`
	TotalStock int    `json:"total_stock"`
	Committed  int    `json:"committed"`
	Requested  int    `json:"requested"`
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: total %d, committed %d, requested %d",
		e.ItemName, e.TotalStock, e.Committed, e.Requested)
}

// ConflictError reports a business-rule conflict, e.g. a customer that already
// has a bill or a duplicate pal number.
type ConflictError struct {
	Reason string `json:"reason"`
}

func (e *ConflictError) Error() string { return e.Reason }

// DeletionBlockedError reports a delete rejected by a guard.
type DeletionBlockedError struct {
	Reason string `json:"reason"`
}

func (e *DeletionBlockedError) Error() string { return e.Reason }

// BadInputError reports a malformed or missing request field.
type BadInputError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *BadInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
