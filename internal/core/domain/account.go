package domain

import (
	"github.com/shopspring/decimal"
)

// Account is a school's cash or bank account. Balance is only ever changed through
// atomic deltas applied by the ledger service.
type Account struct {
	AccountID   string          `json:"accountID"` // Primary Key (UUID)
	SchoolID    string          `json:"schoolID"`  // Tenant
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IsActive    bool            `json:"isActive"`
	Balance     decimal.Decimal `json:"balance"`
	EntryIDs    []string        `json:"entryIDs"` // Ordered references to posted entries
	AuditFields
}

// HasEntry reports whether entryID is already attached to the account.
func (a *Account) HasEntry(entryID string) bool {
	for _, id := range a.EntryIDs {
		if id == entryID {
			return true
		}
	}
	return false
}
