package models

import (
	"github.com/shopspring/decimal"
)

// Account represents a school cash or bank account row.
type Account struct {
	AccountID   string          `db:"account_id"`
	SchoolID    string          `db:"school_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	IsActive    bool            `db:"is_active"`
	Balance     decimal.Decimal `db:"balance"`   // Persisted running balance
	EntryIDs    []string        `db:"entry_ids"` // TEXT[]
	AuditFields
}
